package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

func sampleEntry(key string, fetchedAt time.Time) domain.CacheEntry {
	return domain.CacheEntry{
		Key: key,
		Listings: []domain.RawListing{
			{ProductName: "A2 Milk 2L", Price: 5.5, Supplier: "Woolworths", URL: "https://woolworths.com.au/a2"},
			{ProductName: "A2 Milk 2L", Price: 5.4, Supplier: "Coles"},
		},
		FetchedAt: fetchedAt,
	}
}

func exerciseStore(t *testing.T, store ports.CacheStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "a2 milk"); err != nil || ok {
		t.Fatalf("expected miss on empty store, got ok=%v err=%v", ok, err)
	}

	fetchedAt := time.Date(2025, time.March, 1, 10, 30, 0, 0, time.UTC)
	if err := store.Save(ctx, sampleEntry("a2 milk", fetchedAt)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, ok, err := store.Load(ctx, "a2 milk")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Key != "a2 milk" || !got.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("unexpected entry metadata: %+v", got)
	}
	if len(got.Listings) != 2 || got.Listings[0].URL != "https://woolworths.com.au/a2" || got.Listings[1].Price != 5.4 {
		t.Fatalf("unexpected listings: %+v", got.Listings)
	}

	later := fetchedAt.Add(time.Hour)
	replacement := sampleEntry("a2 milk", later)
	replacement.Listings = replacement.Listings[:1]
	if err := store.Save(ctx, replacement); err != nil {
		t.Fatalf("Save replacement returned error: %v", err)
	}
	got, _, _ = store.Load(ctx, "a2 milk")
	if len(got.Listings) != 1 || !got.FetchedAt.Equal(later) {
		t.Fatalf("replacement not stored: %+v", got)
	}

	if err := store.Delete(ctx, "a2 milk"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "a2 milk"); ok {
		t.Fatalf("expected miss after delete")
	}
	if err := store.Delete(ctx, "never stored"); err != nil {
		t.Fatalf("Delete of missing key returned error: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	entry := sampleEntry("k", time.Now())
	if err := store.Save(ctx, entry); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entry.Listings[0].Price = 0

	got, _, _ := store.Load(ctx, "k")
	got.Listings[1].Price = 0

	again, _, _ := store.Load(ctx, "k")
	if again.Listings[0].Price != 5.5 || again.Listings[1].Price != 5.4 {
		t.Fatalf("stored listings were mutated: %+v", again.Listings)
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	exerciseStore(t, store)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	if err := store.Save(context.Background(), sampleEntry("../coca cola/1.25l", time.Now())); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(files) != 1 || files[0].Name() != "..%2Fcoca%20cola%2F1.25l.json" {
		t.Fatalf("unexpected files: %v", files)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "milk.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, ok, err := store.Load(context.Background(), "milk"); ok || !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got ok=%v err=%v", ok, err)
	}
}

func TestSQLStoreSQLite(t *testing.T) {
	t.Parallel()

	store, err := OpenSQLStore(context.Background(), "sqlite", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLStore returned error: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestOpenSQLStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := OpenSQLStore(context.Background(), "oracle", "dsn"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConnectRedis(t *testing.T) {
	t.Parallel()

	client, err := ConnectRedis(context.Background(), "redis://localhost:6390/2")
	if err != nil {
		t.Fatalf("ConnectRedis returned error: %v", err)
	}
	defer client.Close()

	if client.Options().Addr != "localhost:6390" || client.Options().DB != 2 {
		t.Fatalf("unexpected options: %+v", client.Options())
	}

	store := NewRedisStore(client, "pricescanner:cache:", time.Hour)
	if got := store.key("a2 milk"); got != "pricescanner:cache:a2 milk" {
		t.Fatalf("unexpected key: %s", got)
	}

	if _, err := ConnectRedis(context.Background(), ""); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("ConnectRedis returned error: %v", err)
	}
	store := NewRedisStore(client, "pricescanner:cache:", ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	store, _ := newRedisStore(t, time.Hour)
	exerciseStore(t, store)
}

func TestRedisStoreKeyPrefixAndExpiry(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, 90*time.Minute)
	if err := store.Save(context.Background(), sampleEntry("a2 milk", time.Now())); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if !mr.Exists("pricescanner:cache:a2 milk") {
		t.Fatalf("expected prefixed key, got %v", mr.Keys())
	}
	if got := mr.TTL("pricescanner:cache:a2 milk"); got != 90*time.Minute {
		t.Fatalf("unexpected ttl: %v", got)
	}

	mr.FastForward(91 * time.Minute)
	if _, ok, err := store.Load(context.Background(), "a2 milk"); ok || err != nil {
		t.Fatalf("expected expired key to miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreRestoresKeyAndRejectsCorruptValues(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, time.Hour)

	if err := mr.Set("pricescanner:cache:milk", `{"key":"other","data":[{"product_name":"Milk","price":2}],"fetched_at":"2025-03-01T10:30:00Z"}`); err != nil {
		t.Fatalf("seed value: %v", err)
	}
	got, ok, err := store.Load(context.Background(), "milk")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Key != "milk" || len(got.Listings) != 1 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if err := mr.Set("pricescanner:cache:bread", "{broken"); err != nil {
		t.Fatalf("seed value: %v", err)
	}
	if _, ok, err := store.Load(context.Background(), "bread"); ok || !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected parse error, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	if _, ok, err := store.Load(context.Background(), "milk"); ok || err == nil {
		t.Fatalf("expected error from closed server, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(context.Background(), sampleEntry("milk", time.Now())); err == nil {
		t.Fatalf("expected save error from closed server")
	}
}
