package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the live ledgers of every event served by this process.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[uuid.UUID]*Ledger
}

func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[uuid.UUID]*Ledger)}
}

func (r *Registry) Add(l *Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ledgers[l.ID()]; ok {
		return ErrLedgerExists
	}
	r.ledgers[l.ID()] = l
	return nil
}

func (r *Registry) Get(id uuid.UUID) (*Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[id]
	if !ok {
		return nil, ErrUnknownLedger
	}
	return l, nil
}

// Len returns the number of registered ledgers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.ledgers)
}
