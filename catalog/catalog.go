package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record describes one ingested file.
type Record struct {
	Source     string    `json:"source"`
	SHA256     string    `json:"sha256"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Catalog is a ledger of ingested documents kept in SQLite next to the
// vector store.
type Catalog struct {
	db *sql.DB
}

func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Catalog{db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		source TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL,
		pages INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		ingested_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sha256 ON documents(sha256);
	`

	_, err := c.db.Exec(schema)
	return err
}

func (c *Catalog) Record(ctx context.Context, r Record) error {
	if r.IngestedAt.IsZero() {
		r.IngestedAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (source, sha256, pages, chunks, ingested_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.Source, r.SHA256, r.Pages, r.Chunks, r.IngestedAt.Unix())

	return err
}

// Lookup finds a record by content hash.
func (c *Catalog) Lookup(ctx context.Context, sum string) (Record, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT source, sha256, pages, chunks, ingested_at
		FROM documents WHERE sha256 = ? LIMIT 1
	`, sum)

	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}

	if err != nil {
		return Record{}, false, err
	}

	return r, true, nil
}

func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT source, sha256, pages, chunks, ingested_at
		FROM documents ORDER BY ingested_at, source
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Record, error) {
	var (
		r  Record
		ts int64
	)

	if err := s.Scan(&r.Source, &r.SHA256, &r.Pages, &r.Chunks, &ts); err != nil {
		return Record{}, err
	}

	r.IngestedAt = time.Unix(ts, 0)
	return r, nil
}

// FileSHA256 returns the hex SHA-256 of the file contents.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
