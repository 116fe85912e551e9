package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"raffle/internal/models"
)

const pgUniqueViolation = "23505"

// Postgres stores winner records in PostgreSQL through a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dsn, retrying a few times so the service can start
// alongside its database container, and creates the winners table if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		logger.Warningf("db connect attempt %d/5 failed: %v, retrying in 2s", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := &Postgres{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createWinnersTable, "TIMESTAMPTZ")); err != nil {
		return fmt.Errorf("create winners table: %w", err)
	}
	if _, err := s.db.Exec(ctx, createWinnersIndex); err != nil {
		return fmt.Errorf("create winners index: %w", err)
	}
	return nil
}

func (s *Postgres) Add(ctx context.Context, records []models.WinnerRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		tickets, err := encodeTickets(r.TicketNumbers)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO winners (`+winnerColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			r.ID, r.TenantID, r.ParticipantID, r.Name, r.Supervisor, r.Department, r.NPS, r.NRPC,
			r.RefundPercent, r.TotalTickets, r.PrizeCategory, r.PrizeName, tickets, r.DrawnTicket,
			r.WonAt, r.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
			}
			return fmt.Errorf("insert winner: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit winners: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, tenantID string) ([]models.WinnerRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+winnerColumns+` FROM winners WHERE tenant_id = $1 ORDER BY won_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	out := make([]models.WinnerRecord, 0)
	for rows.Next() {
		w, err := scanWinner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Postgres) WinnerIDs(ctx context.Context, tenantID string) ([]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT participant_id FROM winners WHERE tenant_id = $1 ORDER BY participant_id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list winner ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("scan winner ids: %w", err)
	}
	return ids, nil
}

func (s *Postgres) Purge(ctx context.Context, tenantID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM winners WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("purge winners: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWinner(row scanner) (models.WinnerRecord, error) {
	var (
		w       models.WinnerRecord
		tickets string
	)
	err := row.Scan(&w.ID, &w.TenantID, &w.ParticipantID, &w.Name, &w.Supervisor, &w.Department,
		&w.NPS, &w.NRPC, &w.RefundPercent, &w.TotalTickets, &w.PrizeCategory, &w.PrizeName,
		&tickets, &w.DrawnTicket, &w.WonAt, &w.CreatedAt)
	if err != nil {
		return w, fmt.Errorf("scan winner: %w", err)
	}
	if w.TicketNumbers, err = decodeTickets(tickets); err != nil {
		return w, err
	}
	return w, nil
}
