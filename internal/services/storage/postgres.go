package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS recipes (
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	title      TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner, name)
)`

// PostgresStore keeps recipes in a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("postgres store: init schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r Recipe) error {
	if err := validate(r.Owner, r.Name); err != nil {
		return err
	}
	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO recipes (owner, name, title, source_url, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner, name) DO UPDATE SET
		   title = EXCLUDED.title,
		   source_url = EXCLUDED.source_url,
		   content = EXCLUDED.content`,
		r.Owner, r.Name, r.Title, r.SourceURL, r.Content, r.Created,
	)
	if err != nil {
		return fmt.Errorf("postgres store: save %s: %w", r.Name, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, owner, name string) (*Recipe, error) {
	if err := validate(owner, name); err != nil {
		return nil, err
	}

	var r Recipe
	err := s.pool.QueryRow(ctx,
		`SELECT owner, name, title, source_url, content, created_at
		 FROM recipes WHERE owner = $1 AND name = $2`,
		owner, name,
	).Scan(&r.Owner, &r.Name, &r.Title, &r.SourceURL, &r.Content, &r.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %s: %w", name, err)
	}
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context, owner string) ([]RecipeMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner, name, title, source_url, created_at
		 FROM recipes WHERE owner = $1 ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	return collectMetas(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]RecipeMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner, name, title, source_url, created_at
		 FROM recipes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list all: %w", err)
	}
	return collectMetas(rows)
}

func collectMetas(rows pgx.Rows) ([]RecipeMeta, error) {
	metas, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecipeMeta, error) {
		var m RecipeMeta
		err := row.Scan(&m.Owner, &m.Name, &m.Title, &m.SourceURL, &m.Created)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan: %w", err)
	}
	if metas == nil {
		metas = []RecipeMeta{}
	}
	return metas, nil
}

func (s *PostgresStore) Delete(ctx context.Context, owner, name string) error {
	if err := validate(owner, name); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM recipes WHERE owner = $1 AND name = $2`, owner, name)
	if err != nil {
		return fmt.Errorf("postgres store: delete %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
