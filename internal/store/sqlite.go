package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/shopkit/pagebuilder"
)

// SQLite persists the page builder state in a single key/value table of a
// SQLite database file. The default backend for local sites and the desktop
// shell.
type SQLite struct {
	db     *sql.DB
	table  string
	dbPath string
}

// NewSQLite opens (creating if needed) the database at dbPath. Relative paths
// resolve against siteDir. table defaults to "pagebuilder_state"; a custom
// name must be a plain identifier.
func NewSQLite(dbPath, table, siteDir string) (*SQLite, error) {
	if table == "" {
		table = "pagebuilder_state"
	}
	if !isValidIdentifier(table) {
		return nil, fmt.Errorf("sqlite store: invalid table name %q", table)
	}

	if dbPath == "" {
		dbPath = "./pagebuilder.db"
	}
	if !strings.HasPrefix(dbPath, "/") {
		dbPath = filepath.Join(siteDir, dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: failed to connect: %w", err)
	}

	s := &SQLite{db: db, table: table, dbPath: dbPath}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureTable() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`, s.table)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("sqlite store: failed to create table: %w", err)
	}
	return nil
}

// get returns the value for key, or "" when the key was never written.
func (s *SQLite) get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table)
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite store: read %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) put(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("sqlite store: write %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) LoadLayout(ctx context.Context, slot pagebuilder.Slot) (pagebuilder.Document, error) {
	key, err := layoutKey(slot)
	if err != nil {
		return pagebuilder.Document{}, err
	}
	raw, err := s.get(ctx, key)
	if err != nil {
		return pagebuilder.Document{}, err
	}
	return pagebuilder.Deserialize(raw), nil
}

func (s *SQLite) SaveLayout(ctx context.Context, slot pagebuilder.Slot, doc pagebuilder.Document) error {
	key, err := layoutKey(slot)
	if err != nil {
		return err
	}
	raw, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serialize layout: %w", err)
	}
	return s.put(ctx, key, raw)
}

// Publish copies draft to live in one transaction.
func (s *SQLite) Publish(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin publish: %w", err)
	}
	defer tx.Rollback()

	var draft string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table)
	err = tx.QueryRowContext(ctx, query, keyLayoutDraft).Scan(&draft)
	if err == sql.ErrNoRows {
		draft = "[]"
	} else if err != nil {
		return fmt.Errorf("sqlite store: read draft: %w", err)
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, s.table)
	if _, err := tx.ExecContext(ctx, upsert, keyLayoutLive, draft); err != nil {
		return fmt.Errorf("sqlite store: write live: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) LoadTheme(ctx context.Context) (pagebuilder.Theme, bool, error) {
	raw, err := s.get(ctx, keyTheme)
	if err != nil || raw == "" {
		return pagebuilder.Theme{}, false, err
	}
	var theme pagebuilder.Theme
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		return pagebuilder.Theme{}, false, fmt.Errorf("sqlite store: decode theme: %w", err)
	}
	return theme, true, nil
}

func (s *SQLite) SaveTheme(ctx context.Context, theme pagebuilder.Theme) error {
	data, err := json.Marshal(theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	return s.put(ctx, keyTheme, string(data))
}

func (s *SQLite) LoadCatalog(ctx context.Context) (pagebuilder.Catalog, error) {
	raw, err := s.get(ctx, keyCatalog)
	if err != nil || raw == "" {
		return pagebuilder.Catalog{}, err
	}
	var catalog pagebuilder.Catalog
	if err := json.Unmarshal([]byte(raw), &catalog); err != nil {
		return pagebuilder.Catalog{}, fmt.Errorf("sqlite store: decode catalog: %w", err)
	}
	return catalog, nil
}

func (s *SQLite) SaveCatalog(ctx context.Context, catalog pagebuilder.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return s.put(ctx, keyCatalog, string(data))
}

// Path returns the resolved database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
