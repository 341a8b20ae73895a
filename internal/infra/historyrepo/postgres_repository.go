package historyrepo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS summaries (
	id         BIGSERIAL PRIMARY KEY,
	prompt     TEXT NOT NULL,
	summary    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS summaries_created_at_idx ON summaries (created_at DESC, id DESC);
`

// PostgresRepository implements summarizer.HistoryRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the summaries table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure summaries schema: %w", err)
	}
	return nil
}

// Append inserts a new summary row.
func (r *PostgresRepository) Append(ctx context.Context, rec summarizer.Record) (summarizer.Record, error) {
	var id int64
	row := r.pool.QueryRow(ctx, `
		INSERT INTO summaries (prompt, summary, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rec.Prompt, rec.Summary, rec.CreatedAt)
	if err := row.Scan(&id, &rec.CreatedAt); err != nil {
		return summarizer.Record{}, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Recent returns the newest rows first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]summarizer.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, prompt, summary, created_at
		FROM summaries
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]summarizer.Record, 0, limit)
	for rows.Next() {
		var (
			id  int64
			rec summarizer.Record
		)
		if err := rows.Scan(&id, &rec.Prompt, &rec.Summary, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ID = strconv.FormatInt(id, 10)
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
