package mem

import (
	"context"
	"sync"
	"time"

	"github.com/pvzzle/hotwallet/internal/storage"
)

// Store — история переводов в памяти, когда POSTGRES_URL не задан.
// Живёт ровно столько, сколько процесс.
type Store struct {
	mu   sync.RWMutex
	data []storage.TransferRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) EnsureSchema(_ context.Context) error { return nil }

func (s *Store) InsertTransfer(_ context.Context, rec storage.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.data = append(s.data, rec)
	return nil
}

func (s *Store) ListTransfers(_ context.Context, limit int) ([]storage.TransferRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// последние — первыми
	out := make([]storage.TransferRecord, 0, limit)
	for i := len(s.data) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.data[i])
	}
	return out, nil
}
