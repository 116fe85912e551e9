package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"raffle/internal/models"
)

// Memory keeps winner records in process. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records []models.WinnerRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(_ context.Context, records []models.WinnerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(m.records)+len(records))
	for _, r := range m.records {
		seen[r.ID] = true
	}
	for _, r := range records {
		if seen[r.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
		}
		seen[r.ID] = true
	}

	for _, r := range records {
		r.TicketNumbers = slices.Clone(r.TicketNumbers)
		m.records = append(m.records, r)
	}
	return nil
}

func (m *Memory) List(_ context.Context, tenantID string) ([]models.WinnerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.WinnerRecord, 0)
	for _, r := range m.records {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b models.WinnerRecord) int {
		return b.WonAt.Compare(a.WonAt)
	})
	return out, nil
}

func (m *Memory) WinnerIDs(_ context.Context, tenantID string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, r := range m.records {
		if r.TenantID == tenantID && !seen[r.ParticipantID] {
			seen[r.ParticipantID] = true
			ids = append(ids, r.ParticipantID)
		}
	}
	slices.SortFunc(ids, cmp.Compare[int])
	return ids, nil
}

func (m *Memory) Purge(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var removed int64
	for _, r := range m.records {
		if r.TenantID == tenantID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed, nil
}

func (m *Memory) Close() error { return nil }
