package store

import (
	"context"
	"sync"
	"time"
)

// maxHistoryRecords bounds the in-memory history; the oldest records are
// dropped first.
const maxHistoryRecords = 100

// QueryRecord is one answered query, kept for the history endpoint.
type QueryRecord struct {
	RequestID string    `json:"request_id"`
	Query     string    `json:"query"`
	Intent    string    `json:"intent"`
	Answer    string    `json:"answer,omitempty"`
	Success   bool      `json:"success"`
	AskedAt   time.Time `json:"asked_at"`
}

type HistoryStore interface {
	Add(ctx context.Context, record QueryRecord)
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) []QueryRecord
}

type inMemoryHistoryStore struct {
	records []QueryRecord
	mu      sync.RWMutex
}

func NewInMemoryHistoryStore() HistoryStore {
	return &inMemoryHistoryStore{
		records: make([]QueryRecord, 0, maxHistoryRecords),
	}
}

func (s *inMemoryHistoryStore) Add(ctx context.Context, record QueryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if len(s.records) > maxHistoryRecords {
		s.records = s.records[len(s.records)-maxHistoryRecords:]
	}
}

func (s *inMemoryHistoryStore) Recent(ctx context.Context, limit int) []QueryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]QueryRecord, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		out = append(out, s.records[i])
	}
	return out
}
