package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

const cacheTable = "cache_entries"

const createCacheTable = `CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  TEXT PRIMARY KEY,
    listings   TEXT NOT NULL,
    fetched_at BIGINT NOT NULL
)`

// SQLStore persists cache entries in Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.CacheStore = (*SQLStore)(nil)

// OpenSQLStore opens the database for driver ("postgres" or "sqlite") and
// makes sure the cache table exists.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: cache sql dsn is empty", domain.ErrConfiguration)
	}

	var placeholder sq.PlaceholderFormat
	switch driver {
	case "postgres":
		placeholder = sq.Dollar
	case "sqlite":
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("%w: unsupported sql driver %q", domain.ErrConfiguration, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrConfiguration, driver, err)
	}
	if driver == "sqlite" {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	store := NewSQLStore(db, placeholder)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wires an existing sql.DB.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Migrate creates the cache table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCacheTable); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Load selects the entry stored under key.
func (s *SQLStore) Load(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	query, args, err := s.builder.
		Select("listings", "fetched_at").
		From(cacheTable).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		raw       string
		fetchedAt int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("select cache entry: %w", err)
	}

	var listings []domain.RawListing
	if err := json.Unmarshal([]byte(raw), &listings); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("%w: decode cached listings: %v", domain.ErrParse, err)
	}

	return domain.CacheEntry{
		Key:       key,
		Listings:  listings,
		FetchedAt: time.Unix(0, fetchedAt).UTC(),
	}, true, nil
}

// Save upserts the entry.
func (s *SQLStore) Save(ctx context.Context, entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry.Listings)
	if err != nil {
		return fmt.Errorf("encode listings: %w", err)
	}

	query, args, err := s.builder.
		Insert(cacheTable).
		Columns("cache_key", "listings", "fetched_at").
		Values(entry.Key, string(raw), entry.FetchedAt.UnixNano()).
		Suffix("ON CONFLICT (cache_key) DO UPDATE SET listings = EXCLUDED.listings, fetched_at = EXCLUDED.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(cacheTable).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
