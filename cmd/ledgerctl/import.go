package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

const (
	kindReceipt = "receipt"
	kindSale    = "sale"
)

// eventRow una línea del CSV de eventos.
type eventRow struct {
	line     int
	kind     string
	permitNo string
	location string
	item     string
	day      time.Time
	qty      int64
}

var requiredColumns = []string{"kind", "location_id", "item_id", "day", "qty"}

// parseEvents lee el CSV de eventos. Columnas: kind (receipt|sale), permit_no, location_id,
// item_id, day (AAAA-MM-DD), qty. Con charset "latin1" decodifica ISO-8859-1 (exportes del sistema viejo).
func parseEvents(r io.Reader, charset string, delim rune) ([]eventRow, error) {
	switch strings.ToLower(charset) {
	case "latin1", "iso-8859-1", "iso8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "", "utf8", "utf-8":
	default:
		return nil, fmt.Errorf("charset no soportado: %q", charset)
	}
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xEF\xBB\xBF" {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("archivo vacío")
	}
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("falta la columna %q", c)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []eventRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		row := eventRow{
			line:     line,
			kind:     strings.ToLower(field(rec, "kind")),
			permitNo: field(rec, "permit_no"),
			location: field(rec, "location_id"),
			item:     field(rec, "item_id"),
		}
		if row.kind != kindReceipt && row.kind != kindSale {
			return nil, fmt.Errorf("línea %d: kind inválido %q", line, row.kind)
		}
		if row.day, err = domledger.ParseDay(field(rec, "day")); err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if row.qty, err = strconv.ParseInt(field(rec, "qty"), 10, 64); err != nil {
			return nil, fmt.Errorf("línea %d: qty inválida: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type importCmd struct {
	charset string
	delim   string
	dryRun  bool
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "importa entradas y ventas desde un CSV por el pipeline normal"
}
func (*importCmd) Usage() string {
	return `ledgerctl import [-charset latin1] [-delim ;] [-dry-run] <archivo.csv>

  Cada línea se registra como un evento: se guarda, se resincroniza su celda y se propaga.
  Columnas: kind,permit_no,location_id,item_id,day,qty
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.charset, "charset", "utf8", "Codificación del archivo (utf8 | latin1).")
	f.StringVar(&c.delim, "delim", ",", "Separador de campos.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Solo validar el archivo.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("uso: %s", strings.TrimSpace(c.Usage()))
	}
	delim := []rune(c.delim)
	if len(delim) != 1 {
		return fail("-delim debe ser un solo carácter")
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return fail("abrir CSV: %v", err)
	}
	defer file.Close()

	rows, err := parseEvents(file, c.charset, delim[0])
	if err != nil {
		return fail("%v", err)
	}
	if c.dryRun {
		fmt.Printf("%d eventos válidos\n", len(rows))
		return subcommands.ExitSuccess
	}

	e, err := openEnv(ctx)
	if err != nil {
		return fail("%v", err)
	}
	defer e.Close()

	report := progress("eventos")
	for i, row := range rows {
		if err := importRow(ctx, e.svc, row); err != nil {
			return fail("línea %d: %v (importados %d de %d)", row.line, err, i, len(rows))
		}
		report(i+1, len(rows))
	}
	e.log.Info().Int("events", len(rows)).Str("file", f.Arg(0)).Msg("importación completada")
	return subcommands.ExitSuccess
}

func importRow(ctx context.Context, svc *ledger.Service, row eventRow) error {
	var err error
	switch row.kind {
	case kindReceipt:
		_, _, err = svc.CreateReceipt(ctx, ledger.ReceiptInput{
			PermitNo: row.permitNo, LocationID: row.location, ItemID: row.item, Day: row.day, Qty: row.qty,
		})
	case kindSale:
		_, _, err = svc.CreateSale(ctx, ledger.SaleInput{
			LocationID: row.location, ItemID: row.item, Day: row.day, Qty: row.qty,
		})
	}
	return err
}
