// Package memory implementa los puertos del libro y de los eventos en memoria del proceso.
// Sirve para tests y para STORE_DRIVER=memory; no persiste nada entre reinicios.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.LedgerRepository       = (*LedgerRepo)(nil)
	_ repository.ReceiptEventRepository = (*ReceiptRepo)(nil)
	_ repository.SaleEventRepository    = (*SaleRepo)(nil)
	_ ledger.TxRunner                   = (*Store)(nil)
)

// Store guarda filas del libro y eventos en mapas protegidos por un RWMutex.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entity.LedgerEntry
	receipts map[string]*entity.ReceiptEvent
	sales    map[string]*entity.SaleEvent
	now      func() time.Time
}

// New construye un store vacío.
func New() *Store {
	return &Store{
		entries:  make(map[string]*entity.LedgerEntry),
		receipts: make(map[string]*entity.ReceiptEvent),
		sales:    make(map[string]*entity.SaleEvent),
		now:      time.Now,
	}
}

// Ledger devuelve el repositorio del libro.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

// Receipts devuelve el repositorio de entradas.
func (s *Store) Receipts() *ReceiptRepo { return &ReceiptRepo{s: s} }

// Sales devuelve el repositorio de ventas.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// Run ejecuta fn con un repositorio que acumula las escrituras y las aplica juntas si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(ledgerRepo repository.LedgerRepository) error) error {
	tx := &txLedgerRepo{LedgerRepo: LedgerRepo{s: s}, staged: make(map[string]*entity.LedgerEntry)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range tx.staged {
		e.UpdatedAt = now
		s.entries[k] = e
	}
	return nil
}

// ─── Libro ───────────────────────────────────────────────────────────────────

// LedgerRepo implementación en memoria de repository.LedgerRepository.
type LedgerRepo struct {
	s *Store
}

func (r *LedgerRepo) Get(_ context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[key.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(e), nil
}

func (r *LedgerRepo) Previous(_ context.Context, locationID, itemID string, day time.Time) (*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.LocationID != locationID || e.ItemID != itemID || !e.Day.Before(day) {
			continue
		}
		if best == nil || e.Day.After(best.Day) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	return clone(best), nil
}

func (r *LedgerRepo) Upsert(_ context.Context, entry *entity.LedgerEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := entry.Key().String()
	if cur, ok := r.s.entries[k]; ok && cur.SameValues(entry) {
		return false, nil
	}
	c := clone(entry)
	c.UpdatedAt = r.s.now()
	r.s.entries[k] = c
	entry.UpdatedAt = c.UpdatedAt
	return true, nil
}

func (r *LedgerRepo) ListRange(_ context.Context, locationID, itemID string, from, to time.Time) ([]*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.LocationID != locationID || (itemID != "" && e.ItemID != itemID) {
			continue
		}
		if e.Day.Before(from) || e.Day.After(to) {
			continue
		}
		list = append(list, clone(e))
	}
	sortEntries(list)
	return list, nil
}

func (r *LedgerRepo) ItemsWithHistory(_ context.Context, locationID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, e := range r.s.entries {
		if e.LocationID == locationID && e.HasActivity() {
			seen[e.ItemID] = true
		}
	}
	items := make([]string, 0, len(seen))
	for id := range seen {
		items = append(items, id)
	}
	sort.Strings(items)
	return items, nil
}

func (r *LedgerRepo) FirstDay(_ context.Context, locationID, itemID string) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var first time.Time
	for _, e := range r.s.entries {
		if e.LocationID != locationID || e.ItemID != itemID {
			continue
		}
		if first.IsZero() || e.Day.Before(first) {
			first = e.Day
		}
	}
	if first.IsZero() {
		return time.Time{}, domain.ErrNotFound
	}
	return first, nil
}

func (r *LedgerRepo) DeleteLocation(_ context.Context, locationID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, e := range r.s.entries {
		if e.LocationID == locationID {
			delete(r.s.entries, k)
			n++
		}
	}
	return n, nil
}

// txLedgerRepo ve sus propias escrituras en Get/Upsert; las lecturas de rango ven solo lo confirmado.
type txLedgerRepo struct {
	LedgerRepo
	staged map[string]*entity.LedgerEntry
}

func (t *txLedgerRepo) Get(ctx context.Context, key entity.LedgerKey) (*entity.LedgerEntry, error) {
	if e, ok := t.staged[key.String()]; ok {
		return clone(e), nil
	}
	return t.LedgerRepo.Get(ctx, key)
}

func (t *txLedgerRepo) Upsert(ctx context.Context, entry *entity.LedgerEntry) (bool, error) {
	k := entry.Key().String()
	cur, ok := t.staged[k]
	if !ok {
		if c, err := t.LedgerRepo.Get(ctx, entry.Key()); err == nil {
			cur, ok = c, true
		}
	}
	if ok && cur.SameValues(entry) {
		return false, nil
	}
	t.staged[k] = clone(entry)
	return true, nil
}

// ─── Entradas ────────────────────────────────────────────────────────────────

// ReceiptRepo implementación en memoria de repository.ReceiptEventRepository.
type ReceiptRepo struct {
	s *Store
}

func (r *ReceiptRepo) Create(_ context.Context, ev *entity.ReceiptEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.receipts[ev.ID]; ok {
		return domain.ErrConstraintViolation
	}
	c := *ev
	r.s.receipts[ev.ID] = &c
	return nil
}

func (r *ReceiptRepo) GetByID(_ context.Context, id string) (*entity.ReceiptEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.receipts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *ev
	return &c, nil
}

func (r *ReceiptRepo) Update(_ context.Context, ev *entity.ReceiptEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.receipts[ev.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *ev
	r.s.receipts[ev.ID] = &c
	return nil
}

func (r *ReceiptRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.receipts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.receipts, id)
	return nil
}

func (r *ReceiptRepo) ListByPermit(_ context.Context, permitNo string) ([]*entity.ReceiptEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.ReceiptEvent
	for _, ev := range r.s.receipts {
		if ev.PermitNo == permitNo {
			c := *ev
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *ReceiptRepo) SumQty(_ context.Context, key entity.LedgerKey) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, ev := range r.s.receipts {
		if ev.LocationID == key.LocationID && ev.ItemID == key.ItemID && ev.Day.Equal(key.Day) {
			sum += ev.Qty
		}
	}
	return sum, nil
}

// ─── Ventas ──────────────────────────────────────────────────────────────────

// SaleRepo implementación en memoria de repository.SaleEventRepository.
type SaleRepo struct {
	s *Store
}

func (r *SaleRepo) Create(_ context.Context, ev *entity.SaleEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sales[ev.ID]; ok {
		return domain.ErrConstraintViolation
	}
	c := *ev
	r.s.sales[ev.ID] = &c
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.SaleEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.sales[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *ev
	return &c, nil
}

func (r *SaleRepo) Update(_ context.Context, ev *entity.SaleEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sales[ev.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *ev
	r.s.sales[ev.ID] = &c
	return nil
}

func (r *SaleRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sales[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.sales, id)
	return nil
}

func (r *SaleRepo) SumQty(_ context.Context, key entity.LedgerKey) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, ev := range r.s.sales {
		if ev.LocationID == key.LocationID && ev.ItemID == key.ItemID && ev.Day.Equal(key.Day) {
			sum += ev.Qty
		}
	}
	return sum, nil
}

func clone(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	return &c
}

func sortEntries(list []*entity.LedgerEntry) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ItemID != list[j].ItemID {
			return list[i].ItemID < list[j].ItemID
		}
		return list[i].Day.Before(list[j].Day)
	})
}
