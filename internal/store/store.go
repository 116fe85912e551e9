// Package store persists winner records. The raffle only needs to append
// records, list them, know which participants already won, and purge them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"raffle/internal/models"
)

// ErrDuplicateRecord is returned when a winner record id is inserted twice.
var ErrDuplicateRecord = errors.New("winner record already exists")

// WinnerStore is an append-only log of winner records, partitioned by tenant.
type WinnerStore interface {
	// Add inserts all records or none of them.
	Add(ctx context.Context, records []models.WinnerRecord) error
	// List returns the tenant's records, most recent win first.
	List(ctx context.Context, tenantID string) ([]models.WinnerRecord, error)
	// WinnerIDs returns the distinct participant ids that already won for the tenant.
	WinnerIDs(ctx context.Context, tenantID string) ([]int, error)
	// Purge deletes every record of the tenant and reports how many were removed.
	Purge(ctx context.Context, tenantID string) (int64, error)
	Close() error
}

// createWinnersTable is formatted with the column type used for timestamps.
const createWinnersTable = `
CREATE TABLE IF NOT EXISTS winners (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	participant_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	supervisor TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	nps DOUBLE PRECISION NOT NULL DEFAULT 0,
	nrpc DOUBLE PRECISION NOT NULL DEFAULT 0,
	refund_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_tickets INTEGER NOT NULL DEFAULT 0,
	prize_category TEXT NOT NULL,
	prize_name TEXT NOT NULL,
	ticket_numbers TEXT NOT NULL DEFAULT '[]',
	drawn_ticket INTEGER NOT NULL,
	won_at %[1]s NOT NULL,
	created_at %[1]s NOT NULL
)`

const createWinnersIndex = `CREATE INDEX IF NOT EXISTS winners_tenant_idx ON winners (tenant_id, won_at)`

const winnerColumns = `id, tenant_id, participant_id, name, supervisor, department, nps, nrpc,
	refund_percent, total_tickets, prize_category, prize_name, ticket_numbers, drawn_ticket, won_at, created_at`

func encodeTickets(numbers []int) (string, error) {
	if numbers == nil {
		numbers = []int{}
	}
	b, err := json.Marshal(numbers)
	if err != nil {
		return "", fmt.Errorf("encode ticket numbers: %w", err)
	}
	return string(b), nil
}

func decodeTickets(raw string) ([]int, error) {
	numbers := []int{}
	if raw == "" {
		return numbers, nil
	}
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		return nil, fmt.Errorf("decode ticket numbers: %w", err)
	}
	return numbers, nil
}
