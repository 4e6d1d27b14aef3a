package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver

	"vulnhub-crawler/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS visited_urls (
	url        TEXT PRIMARY KEY,
	position   BIGSERIAL,
	visited_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the ledger in the visited_urls table. Rows are only
// ever added, so Persist inserts what is missing and leaves the rest.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create visited_urls: %w: %w", models.ErrPersist, err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (*Set, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT url FROM visited_urls ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w: %w", models.ErrLedgerCorrupt, err)
	}
	defer rows.Close()

	set := NewSet()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w: %w", models.ErrLedgerCorrupt, err)
		}
		set.Record(url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w: %w", models.ErrLedgerCorrupt, err)
	}
	return set, nil
}

func (p *PostgresStore) Persist(ctx context.Context, set *Set) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist ledger: %w: %w", models.ErrPersist, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO visited_urls (url)
		VALUES ($1)
		ON CONFLICT (url) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("persist ledger: %w: %w", models.ErrPersist, err)
	}
	defer stmt.Close()

	for _, url := range set.URLs() {
		if _, err := stmt.ExecContext(ctx, url); err != nil {
			return fmt.Errorf("insert %s: %w: %w", url, models.ErrPersist, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w: %w", models.ErrPersist, err)
	}
	return nil
}
