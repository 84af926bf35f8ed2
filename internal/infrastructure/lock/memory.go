package lock

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

var _ ledger.KeyLocker = (*MemoryLocker)(nil)

// MemoryLocker candado por clave dentro del proceso. Cada clave tiene un canal de capacidad 1
// para que la espera respete la cancelación del contexto; las claves sin uso se liberan.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker construye el candado en memoria.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

// Lock espera el candado de key o hasta que ctx termine.
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			l.release(key, sl)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, sl *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.slots, key)
	}
}
