// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/otoshimono/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('lost', 'found')),
		title TEXT NOT NULL,
		description TEXT,
		location TEXT,
		image_url TEXT,
		features BLOB,
		placeholder INTEGER NOT NULL DEFAULT 0,
		placeholder_reason TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_kind_created_at ON items(kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const itemColumns = `id, kind, title, description, location, image_url, features,
	placeholder, placeholder_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var kind string
	var description, location, imageURL, reason sql.NullString
	var blob []byte
	err := row.Scan(&item.ID, &kind, &item.Title, &description, &location, &imageURL, &blob,
		&item.Placeholder, &reason, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	features, err := decodeFeatures(blob)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	item.Kind = models.Kind(kind)
	item.Description = description.String
	item.Location = location.String
	item.ImageURL = imageURL.String
	item.PlaceholderReason = reason.String
	item.Features = features
	return &item, nil
}

// SaveItem upserts an item and its feature vector.
func (s *SQLiteStorage) SaveItem(ctx context.Context, item *models.Item) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			image_url = excluded.image_url,
			features = excluded.features,
			placeholder = excluded.placeholder,
			placeholder_reason = excluded.placeholder_reason,
			updated_at = excluded.updated_at`,
		item.ID, string(item.Kind), item.Title, item.Description, item.Location, item.ImageURL,
		encodeFeatures(item.Features), item.Placeholder, item.PlaceholderReason,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return s.db.QueryRowContext(ctx, `SELECT created_at FROM items WHERE id = ?`, item.ID).Scan(&item.CreatedAt)
}

// GetItem returns an item by ID.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item by ID.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListItems returns items of kind (or all kinds) with offset and limit.
func (s *SQLiteStorage) ListItems(ctx context.Context, kind models.Kind, offset, limit int) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems returns the number of items of kind, or of all items when kind is empty.
func (s *SQLiteStorage) CountItems(ctx context.Context, kind models.Kind) (int64, error) {
	var count int64
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE kind = ?`, string(kind)).Scan(&count)
	}
	return count, err
}

// CountPlaceholders returns the number of items stored with placeholder features.
func (s *SQLiteStorage) CountPlaceholders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE placeholder = 1`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
