package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/intraview/internal/interview"
)

const uniqueViolation = "23505"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT,
		status     TEXT NOT NULL,
		document   JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS runs_user_id_created_at_idx ON runs (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS runs_status_updated_at_idx ON runs (status, updated_at)`,
}

// Postgres stores each run as a JSONB document. Status, owner and timestamps
// are mirrored into columns for the secondary indexes.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

// Migrate creates the runs table and its indexes when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate runs table: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Get(ctx context.Context, id string) (*interview.Run, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx, `SELECT document FROM runs WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return decodeRun(doc)
}

func (p *Postgres) Insert(ctx context.Context, run *interview.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	now := p.now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO runs (id, user_id, status, document, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, nullable(run.UserID), string(run.Status), doc, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrExists, run.ID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (p *Postgres) Patch(ctx context.Context, id string, fn PatchFunc) (*interview.Run, error) {
	var patched *interview.Run

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var doc []byte
		err := tx.QueryRow(ctx, `SELECT document FROM runs WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return fmt.Errorf("failed to lock run %s: %w", id, err)
		}

		run, err := decodeRun(doc)
		if err != nil {
			return err
		}
		createdAt := run.CreatedAt

		if err := fn(run); err != nil {
			return err
		}

		run.ID = id
		run.CreatedAt = createdAt
		run.UpdatedAt = p.now().UTC()

		next, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE runs SET user_id = $2, status = $3, document = $4, updated_at = $5 WHERE id = $1`,
			id, nullable(run.UserID), string(run.Status), next, run.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update run %s: %w", id, err)
		}

		patched = run
		return nil
	})
	if err != nil {
		return nil, err
	}

	return patched, nil
}

func (p *Postgres) ListByUser(ctx context.Context, userID string) ([]*interview.Run, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT document FROM runs WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return collectRuns(rows)
}

func (p *Postgres) ListStale(ctx context.Context, statuses []interview.Status, before time.Time) ([]*interview.Run, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT document FROM runs WHERE status = ANY($1) AND updated_at < $2 ORDER BY updated_at`,
		statusStrings(statuses), before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale runs: %w", err)
	}
	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]*interview.Run, error) {
	defer rows.Close()

	runs := make([]*interview.Run, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decodeRun(doc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func decodeRun(doc []byte) (*interview.Run, error) {
	var run interview.Run
	if err := json.Unmarshal(doc, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run document: %w", err)
	}
	return &run, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
