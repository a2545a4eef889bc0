package refresh

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRepository is an in-process [Repository]. All operations are
// serialized by a single mutex, which makes Rotate trivially atomic.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*Record
	byHash map[string]string
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*Record),
		byHash: make(map[string]string),
	}
}

func (m *MemoryRepository) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(rec)
}

func (m *MemoryRepository) insertLocked(rec Record) error {
	if _, ok := m.byID[rec.TokenID]; ok {
		return errors.New("duplicate token id")
	}
	if _, ok := m.byHash[rec.TokenHash]; ok {
		return errors.New("duplicate token hash")
	}
	stored := rec
	m.byID[rec.TokenID] = &stored
	m.byHash[rec.TokenHash] = rec.TokenID
	return nil
}

func (m *MemoryRepository) FindByHash(_ context.Context, tokenHash string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byHash[tokenHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(m.byID[id]), nil
}

func (m *MemoryRepository) Rotate(_ context.Context, oldTokenID string, next Record, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.byID[oldTokenID]
	if !ok || !old.Usable(now) {
		return ErrNotFound
	}
	if err := m.insertLocked(next); err != nil {
		return err
	}
	revokedAt := now
	old.RevokedAt = &revokedAt
	return nil
}

func (m *MemoryRepository) RevokeByHash(_ context.Context, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byHash[tokenHash]
	if !ok {
		return nil
	}
	if rec := m.byID[id]; rec.RevokedAt == nil {
		revokedAt := now
		rec.RevokedAt = &revokedAt
	}
	return nil
}

func (m *MemoryRepository) RevokeAllForSubject(_ context.Context, subjectID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, rec := range m.byID {
		if rec.SubjectID != subjectID || rec.RevokedAt != nil {
			continue
		}
		revokedAt := now
		rec.RevokedAt = &revokedAt
		n++
	}
	return n, nil
}

func (m *MemoryRepository) DeleteDead(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, rec := range m.byID {
		if rec.Usable(now) {
			continue
		}
		delete(m.byHash, rec.TokenHash)
		delete(m.byID, id)
		n++
	}
	return n, nil
}

// Len returns the number of stored rows, dead or alive.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func copyRecord(rec *Record) Record {
	out := *rec
	if rec.RevokedAt != nil {
		t := *rec.RevokedAt
		out.RevokedAt = &t
	}
	return out
}
