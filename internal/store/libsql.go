package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"raffle/internal/models"
)

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// LibSQL stores winner records in a Turso/libSQL database.
type LibSQL struct {
	db *sql.DB
}

// NewLibSQL opens the database at url, authenticating with authToken when set.
func NewLibSQL(ctx context.Context, url, authToken string) (*LibSQL, error) {
	dsn := url
	if authToken != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		dsn = url + sep + "authToken=" + authToken
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping libsql: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(createWinnersTable, "TEXT")); err != nil {
		db.Close()
		return nil, fmt.Errorf("create winners table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createWinnersIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create winners index: %w", err)
	}
	return &LibSQL{db: db}, nil
}

func (s *LibSQL) Add(ctx context.Context, records []models.WinnerRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		tickets, err := encodeTickets(r.TicketNumbers)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO winners (`+winnerColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.TenantID, r.ParticipantID, r.Name, r.Supervisor, r.Department, r.NPS, r.NRPC,
			r.RefundPercent, r.TotalTickets, r.PrizeCategory, r.PrizeName, tickets, r.DrawnTicket,
			r.WonAt.UTC().Format(timeLayout), r.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
			}
			return fmt.Errorf("insert winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit winners: %w", err)
	}
	return nil
}

func (s *LibSQL) List(ctx context.Context, tenantID string) ([]models.WinnerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+winnerColumns+` FROM winners WHERE tenant_id = ? ORDER BY won_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	out := make([]models.WinnerRecord, 0)
	for rows.Next() {
		var (
			w              models.WinnerRecord
			tickets        string
			wonAt, created string
		)
		err := rows.Scan(&w.ID, &w.TenantID, &w.ParticipantID, &w.Name, &w.Supervisor, &w.Department,
			&w.NPS, &w.NRPC, &w.RefundPercent, &w.TotalTickets, &w.PrizeCategory, &w.PrizeName,
			&tickets, &w.DrawnTicket, &wonAt, &created)
		if err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		if w.TicketNumbers, err = decodeTickets(tickets); err != nil {
			return nil, err
		}
		if w.WonAt, err = time.Parse(timeLayout, wonAt); err != nil {
			return nil, fmt.Errorf("parse won_at: %w", err)
		}
		if w.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *LibSQL) WinnerIDs(ctx context.Context, tenantID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT participant_id FROM winners WHERE tenant_id = ? ORDER BY participant_id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list winner ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan winner id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *LibSQL) Purge(ctx context.Context, tenantID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM winners WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("purge winners: %w", err)
	}
	return res.RowsAffected()
}

func (s *LibSQL) Close() error {
	return s.db.Close()
}
