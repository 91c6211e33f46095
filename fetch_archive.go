package blockview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

const archiveSchema = `CREATE TABLE IF NOT EXISTS assets (
	uri  TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// ArchiveFetcher serves assets from a single-file SQLite archive.
type ArchiveFetcher struct {
	db *sql.DB
}

func OpenArchive(path string) (*ArchiveFetcher, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &ArchiveFetcher{db: db}, nil
}

func (a *ArchiveFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	var data []byte
	err := a.db.QueryRowContext(ctx, `SELECT data FROM assets WHERE uri = ?`, uri).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archive %s: %w", uri, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", uri, err)
	}
	return data, nil
}

func (a *ArchiveFetcher) Close() error { return a.db.Close() }

// WriteArchive creates or extends an archive with the given assets.
func WriteArchive(ctx context.Context, path string, assets map[string][]byte) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, archiveSchema); err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO assets (uri, data) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for uri, data := range assets {
		if _, err := stmt.ExecContext(ctx, uri, data); err != nil {
			return fmt.Errorf("archive %s: %w", uri, err)
		}
	}
	return tx.Commit()
}
