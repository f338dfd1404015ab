package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/shopkit/pagebuilder"
)

// Postgres persists the page builder state in a PostgreSQL key/value table,
// for multi-instance deployments where a local file will not do.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres connects using dsn, falling back to the DATABASE_URL environment
// variable. table defaults to "pagebuilder_state".
func NewPostgres(dsn, table string) (*Postgres, error) {
	if table == "" {
		table = "pagebuilder_state"
	}
	if !isValidIdentifier(table) {
		return nil, fmt.Errorf("postgres store: invalid table name %q", table)
	}

	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: connection required (set store.dsn or DATABASE_URL)")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres store: failed to connect: %w", err)
	}

	p := &Postgres{db: db, table: table}
	if err := p.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres store: failed to create table: %w", err)
	}
	return nil
}

func (p *Postgres) get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", p.table)
	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres store: read %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) put(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, p.table)
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres store: write %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) LoadLayout(ctx context.Context, slot pagebuilder.Slot) (pagebuilder.Document, error) {
	key, err := layoutKey(slot)
	if err != nil {
		return pagebuilder.Document{}, err
	}
	raw, err := p.get(ctx, key)
	if err != nil {
		return pagebuilder.Document{}, err
	}
	return pagebuilder.Deserialize(raw), nil
}

func (p *Postgres) SaveLayout(ctx context.Context, slot pagebuilder.Slot, doc pagebuilder.Document) error {
	key, err := layoutKey(slot)
	if err != nil {
		return err
	}
	raw, err := doc.Serialize()
	if err != nil {
		return fmt.Errorf("serialize layout: %w", err)
	}
	return p.put(ctx, key, raw)
}

// Publish copies draft to live in one transaction.
func (p *Postgres) Publish(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres store: begin publish: %w", err)
	}
	defer tx.Rollback()

	var draft string
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", p.table)
	err = tx.QueryRowContext(ctx, query, keyLayoutDraft).Scan(&draft)
	if err == sql.ErrNoRows {
		draft = "[]"
	} else if err != nil {
		return fmt.Errorf("postgres store: read draft: %w", err)
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, p.table)
	if _, err := tx.ExecContext(ctx, upsert, keyLayoutLive, draft); err != nil {
		return fmt.Errorf("postgres store: write live: %w", err)
	}

	return tx.Commit()
}

func (p *Postgres) LoadTheme(ctx context.Context) (pagebuilder.Theme, bool, error) {
	raw, err := p.get(ctx, keyTheme)
	if err != nil || raw == "" {
		return pagebuilder.Theme{}, false, err
	}
	var theme pagebuilder.Theme
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		return pagebuilder.Theme{}, false, fmt.Errorf("postgres store: decode theme: %w", err)
	}
	return theme, true, nil
}

func (p *Postgres) SaveTheme(ctx context.Context, theme pagebuilder.Theme) error {
	data, err := json.Marshal(theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	return p.put(ctx, keyTheme, string(data))
}

func (p *Postgres) LoadCatalog(ctx context.Context) (pagebuilder.Catalog, error) {
	raw, err := p.get(ctx, keyCatalog)
	if err != nil || raw == "" {
		return pagebuilder.Catalog{}, err
	}
	var catalog pagebuilder.Catalog
	if err := json.Unmarshal([]byte(raw), &catalog); err != nil {
		return pagebuilder.Catalog{}, fmt.Errorf("postgres store: decode catalog: %w", err)
	}
	return catalog, nil
}

func (p *Postgres) SaveCatalog(ctx context.Context, catalog pagebuilder.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return p.put(ctx, keyCatalog, string(data))
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
