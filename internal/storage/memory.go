// Package storage contains the in-memory persistence layer used by the
// engine tests and the database-free demo mode.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

// MemoryStore implements circulation.Store over plain maps. A single mutex
// serializes transactions, which gives the same guarantee as the row lock in
// the Postgres store: conflicting writers on one copy never interleave.
type MemoryStore struct {
	mu            sync.Mutex
	copies        map[int64]*model.BookCopy
	patrons       map[int64]*model.Patron
	patronsByCode map[string]int64
	circulations  map[int64]*model.Circulation
	nextCopyID    int64
	nextPatronID  int64
	nextCircID    int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		copies:        make(map[int64]*model.BookCopy),
		patrons:       make(map[int64]*model.Patron),
		patronsByCode: make(map[string]int64),
		circulations:  make(map[int64]*model.Circulation),
	}
}

// InTx runs fn under the store mutex. Writes are staged on the transaction
// and applied only when fn returns nil, mirroring a database rollback.
func (m *MemoryStore) InTx(_ context.Context, fn func(tx circulation.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{
		store:      m,
		copyStatus: make(map[int64]model.CopyStatus),
		circWrites: make(map[int64]*model.Circulation),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// AddCopy seeds a copy and returns its id.
func (m *MemoryStore) AddCopy(cp model.BookCopy) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCopyID++
	cp.ID = m.nextCopyID
	if cp.Status == "" {
		cp.Status = model.CopyAvailable
	}
	m.copies[cp.ID] = &cp
	return cp.ID
}

// AddPatron seeds a patron and returns its id.
func (m *MemoryStore) AddPatron(p model.Patron) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPatronID++
	p.ID = m.nextPatronID
	if p.Status == "" {
		p.Status = model.PatronActive
	}
	m.patrons[p.ID] = &p
	m.patronsByCode[p.PatronID] = p.ID
	return p.ID
}

// Copy returns a snapshot of a seeded copy.
func (m *MemoryStore) Copy(id int64) (model.BookCopy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.copies[id]
	if !ok {
		return model.BookCopy{}, false
	}
	return *cp, true
}

// Circulation returns a snapshot of a circulation row.
func (m *MemoryStore) Circulation(id int64) (model.Circulation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.circulations[id]
	if !ok {
		return model.Circulation{}, false
	}
	return *c, true
}

// Circulations returns a snapshot of all circulation rows ordered by id.
func (m *MemoryStore) Circulations() []model.Circulation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Circulation, 0, len(m.circulations))
	for id := int64(1); id <= m.nextCircID; id++ {
		if c, ok := m.circulations[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// OpenLoanCount counts circulations with status borrowed for one copy.
func (m *MemoryStore) OpenLoanCount(copyID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.circulations {
		if c.BookCopyID == copyID && c.Status == model.StatusBorrowed {
			n++
		}
	}
	return n
}

// memTx stages writes against the store until commit.
type memTx struct {
	store      *MemoryStore
	copyStatus map[int64]model.CopyStatus
	circWrites map[int64]*model.Circulation
	created    []*model.Circulation
}

func (t *memTx) CopyForUpdate(_ context.Context, id int64) (*model.BookCopy, error) {
	cp, ok := t.store.copies[id]
	if !ok {
		return nil, fmt.Errorf("%w: book copy %d", circulation.ErrNotFound, id)
	}
	out := *cp
	if status, ok := t.copyStatus[id]; ok {
		out.Status = status
	}
	return &out, nil
}

func (t *memTx) SetCopyStatus(_ context.Context, id int64, status model.CopyStatus) error {
	if _, ok := t.store.copies[id]; !ok {
		return fmt.Errorf("%w: book copy %d", circulation.ErrNotFound, id)
	}
	t.copyStatus[id] = status
	return nil
}

func (t *memTx) PatronByPublicID(_ context.Context, publicID string) (*model.Patron, error) {
	id, ok := t.store.patronsByCode[publicID]
	if !ok {
		return nil, fmt.Errorf("%w: patron %s", circulation.ErrNotFound, publicID)
	}
	out := *t.store.patrons[id]
	return &out, nil
}

func (t *memTx) CreateCirculation(_ context.Context, c *model.Circulation) error {
	t.store.nextCircID++
	c.ID = t.store.nextCircID
	t.created = append(t.created, c)
	return nil
}

func (t *memTx) CirculationForUpdate(_ context.Context, id int64) (*model.Circulation, error) {
	if staged, ok := t.circWrites[id]; ok {
		out := *staged
		return &out, nil
	}
	c, ok := t.store.circulations[id]
	if !ok {
		return nil, fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, id)
	}
	out := *c
	return &out, nil
}

func (t *memTx) UpdateCirculation(_ context.Context, c *model.Circulation) error {
	if _, ok := t.store.circulations[c.ID]; !ok {
		return fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, c.ID)
	}
	snapshot := *c
	t.circWrites[c.ID] = &snapshot
	return nil
}

func (t *memTx) commit() {
	for id, status := range t.copyStatus {
		t.store.copies[id].Status = status
	}
	for id, c := range t.circWrites {
		t.store.circulations[id] = c
	}
	for _, c := range t.created {
		snapshot := *c
		t.store.circulations[c.ID] = &snapshot
	}
}
