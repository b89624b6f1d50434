package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS recipes (
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	title      TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (owner, name)
)`

// SQLiteStore keeps recipes in a local SQLite file. Used by the CLI and
// single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, r Recipe) error {
	if err := validate(r.Owner, r.Name); err != nil {
		return err
	}
	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipes (owner, name, title, source_url, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner, name) DO UPDATE SET
		   title = excluded.title,
		   source_url = excluded.source_url,
		   content = excluded.content`,
		r.Owner, r.Name, r.Title, r.SourceURL, r.Content, r.Created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite store: save %s: %w", r.Name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, owner, name string) (*Recipe, error) {
	if err := validate(owner, name); err != nil {
		return nil, err
	}

	var r Recipe
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, name, title, source_url, content, created_at
		 FROM recipes WHERE owner = ? AND name = ?`,
		owner, name,
	).Scan(&r.Owner, &r.Name, &r.Title, &r.SourceURL, &r.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get %s: %w", name, err)
	}
	r.Created, _ = time.Parse(time.RFC3339Nano, created)
	return &r, nil
}

func (s *SQLiteStore) List(ctx context.Context, owner string) ([]RecipeMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner, name, title, source_url, created_at
		 FROM recipes WHERE owner = ? ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list: %w", err)
	}
	return scanMetas(rows)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]RecipeMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner, name, title, source_url, created_at
		 FROM recipes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list all: %w", err)
	}
	return scanMetas(rows)
}

func scanMetas(rows *sql.Rows) ([]RecipeMeta, error) {
	defer rows.Close()

	metas := []RecipeMeta{}
	for rows.Next() {
		var m RecipeMeta
		var created string
		if err := rows.Scan(&m.Owner, &m.Name, &m.Title, &m.SourceURL, &created); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		m.Created, _ = time.Parse(time.RFC3339Nano, created)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewestFirst(metas)
	return metas, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, owner, name string) error {
	if err := validate(owner, name); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return fmt.Errorf("sqlite store: delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
