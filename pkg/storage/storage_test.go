package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactories returns a constructor for every backend. Redis runs
// against an in-process server unless ZILEAN_REDIS_URL names a real one.
func backendFactories(t *testing.T) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend {
			return NewMemoryBackend()
		},
		"sqlite": func(t *testing.T) Backend {
			cfg := &Config{
				Backend:    BackendSQLite,
				SQLitePath: filepath.Join(t.TempDir(), "data", "test.db"),
			}
			b, err := Open(context.Background(), cfg)
			require.NoError(t, err)
			return b
		},
		"badger": func(t *testing.T) Backend {
			b, err := OpenBadgerBackend("", "champion:")
			require.NoError(t, err)
			return b
		},
		"redis": func(t *testing.T) Backend {
			url := os.Getenv("ZILEAN_REDIS_URL")
			if url == "" {
				url = "redis://" + miniredis.RunT(t).Addr() + "/0"
			}
			prefix := "zilean-test:" + t.Name() + ":"
			b, err := OpenRedisBackend(context.Background(), url, prefix)
			require.NoError(t, err)
			t.Cleanup(func() {
				keys, _ := b.client.Keys(context.Background(), prefix+"*").Result()
				if len(keys) > 0 {
					_ = b.client.Del(context.Background(), keys...).Err()
				}
			})
			return b
		},
	}
}

func TestBackends(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close() })

			_, err := b.Get(ctx, 10)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Put(ctx, 10, []byte(`{"a":{"\u0000":1}}`)))
			require.NoError(t, b.Put(ctx, 3, []byte(`{}`)))

			got, err := b.Get(ctx, 10)
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":{"\u0000":1}}`, string(got))

			require.NoError(t, b.Put(ctx, 10, []byte(`{"b":{"\u0000":2}}`)))
			got, err = b.Get(ctx, 10)
			require.NoError(t, err)
			assert.JSONEq(t, `{"b":{"\u0000":2}}`, string(got))

			ids, err := b.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uint32{3, 10}, ids)
		})
	}
}

func TestDatabaseLoadStore(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := NewDatabase(factory(t))
			t.Cleanup(func() { _ = db.Close() })

			c := champion.New(10)
			for _, nickname := range []string{"foo", "bar", "baz"} {
				_, err := c.Feed(nickname)
				require.NoError(t, err)
			}
			require.NoError(t, db.Store(ctx, c))

			loaded := db.Load(ctx, 10)
			assert.True(t, loaded.Equal(c), "expected the loaded champion to equal the stored one")

			// Update, store again, and reload.
			_, err := loaded.Feed("quux")
			require.NoError(t, err)
			require.NoError(t, db.Store(ctx, loaded))
			reloaded := db.Load(ctx, 10)
			assert.True(t, reloaded.Contains("quux"))
			assert.True(t, reloaded.Contains("foo"))
		})
	}
}

func TestDatabaseLoadMissing(t *testing.T) {
	db := NewDatabase(NewMemoryBackend())
	c := db.Load(context.Background(), 42)
	require.NotNil(t, c)
	assert.Equal(t, uint32(42), c.Id())
	assert.True(t, c.Empty())

	_, err := db.Fetch(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabaseCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, 7, []byte(`{"ab":{"c":1}}`)))
	db := NewDatabase(backend)

	_, err := db.Fetch(ctx, 7)
	assert.ErrorIs(t, err, champion.ErrMalformedSnapshot)

	c := db.Load(ctx, 7)
	assert.True(t, c.Empty(), "expected Load to fall back to an empty champion")
}

type failingBackend struct {
	*MemoryBackend
}

var errUnavailable = errors.New("connection refused")

func (f failingBackend) Get(context.Context, uint32) ([]byte, error) {
	return nil, errUnavailable
}

func (f failingBackend) Put(context.Context, uint32, []byte) error {
	return errUnavailable
}

func TestDatabaseBackendFailure(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(failingBackend{NewMemoryBackend()})

	c := db.Load(ctx, 1)
	assert.True(t, c.Empty())

	_, err := db.Fetch(ctx, 1)
	assert.ErrorIs(t, err, errUnavailable)

	_, _ = c.Feed("foo")
	err = db.Store(ctx, c)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &Config{Backend: "cassandra"})
	assert.Error(t, err)
}

func TestSQLiteFile(t *testing.T) {
	testCases := map[string]string{
		"./data/zilean.db?_journal_mode=WAL": "./data/zilean.db",
		"file:test.db?cache=shared":          "test.db",
		":memory:":                           ":memory:",
	}
	for dsn, expected := range testCases {
		assert.Equal(t, expected, sqliteFile(dsn), dsn)
	}
}

func TestSQLiteDefaultPragmas(t *testing.T) {
	b, err := Open(context.Background(), &Config{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "pragmas.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	db := b.(*SQLiteBackend).db

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout;").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	assert.Equal(t, "test.db?cache=shared", withPragmas("test.db?cache=shared"))
}

func TestParseChampionKey(t *testing.T) {
	id, ok := parseChampionKey("champion:", championKey("champion:", 4294967295))
	assert.True(t, ok)
	assert.Equal(t, uint32(4294967295), id)

	_, ok = parseChampionKey("champion:", "champion:abc")
	assert.False(t, ok)
	_, ok = parseChampionKey("champion:", "other:12")
	assert.False(t, ok)
	_, ok = parseChampionKey("champion:", "champion:4294967296")
	assert.False(t, ok)
}
