package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func TestParseEvents_Latin1YPuntoYComa(t *testing.T) {
	src := "kind;permit_no;location_id;item_id;day;qty\n" +
		"receipt;P-1;Bogotá;Aguardiente;2024-01-02;12\n" +
		"SALE;;Bogotá;Aguardiente;2024-01-03;4\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	rows, err := parseEvents(bytes.NewReader(latin1), "latin1", ';')
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bogotá", rows[0].location)
	assert.Equal(t, kindReceipt, rows[0].kind)
	assert.Equal(t, int64(12), rows[0].qty)
	assert.Equal(t, kindSale, rows[1].kind)
	assert.Equal(t, 3, rows[1].line)
}

func TestParseEvents_Errores(t *testing.T) {
	cases := map[string]string{
		"vacío":         "",
		"falta columna": "kind,location_id,item_id,day\n",
		"kind inválido": "kind,location_id,item_id,day,qty\ntransfer,L,X,2024-01-01,1\n",
		"día inválido":  "kind,location_id,item_id,day,qty\nsale,L,X,01/02/2024,1\n",
		"qty no entera": "kind,location_id,item_id,day,qty\nsale,L,X,2024-01-01,1.5\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseEvents(strings.NewReader(src), "utf8", ',')
			assert.Error(t, err)
		})
	}
	_, err := parseEvents(strings.NewReader("kind\n"), "ebcdic", ',')
	assert.Error(t, err)
}

func TestImportRow_PasaPorElPipeline(t *testing.T) {
	mem := memory.New()
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	svc := ledger.NewService(ledger.Deps{
		Ledger: mem.Ledger(), Receipts: mem.Receipts(), Sales: mem.Sales(),
		Tx: mem, Locker: lock.NewMemoryLocker(),
		Clock: func() time.Time { return now },
	})
	rows, err := parseEvents(strings.NewReader(
		"\xEF\xBB\xBFkind,permit_no,location_id,item_id,day,qty\n"+
			"receipt,P-1,L,X,2024-01-01,10\n"+
			"sale,,L,X,2024-01-02,3\n"), "utf8", ',')
	require.NoError(t, err)

	ctx := context.Background()
	for _, r := range rows {
		require.NoError(t, importRow(ctx, svc, r))
	}
	e, err := svc.GetDay(ctx, entity.LedgerKey{LocationID: "L", ItemID: "X", Day: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.ClosingQty)
}
