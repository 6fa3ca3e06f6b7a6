package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/CTAG07/Zilean/pkg/collector"
	"github.com/CTAG07/Zilean/pkg/metrics"
	"github.com/CTAG07/Zilean/pkg/registry"
	"github.com/CTAG07/Zilean/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngester(t *testing.T) (*Ingester, *storage.Database) {
	t.Helper()
	db := storage.NewDatabase(storage.NewMemoryBackend())
	t.Cleanup(func() { _ = db.Close() })
	return NewIngester(registry.New(db), 4), db
}

func TestApply(t *testing.T) {
	in, db := newTestIngester(t)
	ctx := context.Background()

	res, err := in.Apply(ctx, collector.Payload{
		14: {"foo", "bar"},
		81: {"hello", "world"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Champions: 2, Fed: 4}, res)

	for id, nicknames := range map[uint32][]string{14: {"foo", "bar"}, 81: {"hello", "world"}} {
		c := db.Load(ctx, id)
		for _, n := range nicknames {
			assert.True(t, c.Contains(n), "champion %d should contain %q", id, n)
		}
	}
	assert.False(t, db.Load(ctx, 14).Contains("hello"))
}

func TestApplyMatchesSequentialFeeding(t *testing.T) {
	in, db := newTestIngester(t)
	ctx := context.Background()
	nicknames := []string{"raloud", "oud", "ral", "loud", "ra"}

	_, err := in.Apply(ctx, collector.Payload{7: nicknames})
	require.NoError(t, err)

	want := champion.New(7)
	for _, n := range nicknames {
		_, err = want.Feed(n)
		require.NoError(t, err)
	}
	assert.True(t, want.Equal(db.Load(ctx, 7)))
}

func TestApplyCountsOutcomes(t *testing.T) {
	in, _ := newTestIngester(t)

	res, err := in.Apply(context.Background(), collector.Payload{
		1: {"raloud", "oud", "", "raloud"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Champions: 1, Fed: 1, Skipped: 2, Rejected: 1}, res)
}

func TestApplyAccumulates(t *testing.T) {
	in, db := newTestIngester(t)
	ctx := context.Background()

	_, err := in.Apply(ctx, collector.Payload{3: {"foo"}})
	require.NoError(t, err)
	_, err = in.Apply(ctx, collector.Payload{3: {"bar"}})
	require.NoError(t, err)

	c := db.Load(ctx, 3)
	assert.True(t, c.Contains("foo"))
	assert.True(t, c.Contains("bar"))
}

func TestApplyEmptyPayload(t *testing.T) {
	in, _ := newTestIngester(t)

	res, err := in.Apply(context.Background(), collector.Payload{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestApplySkipsEmptyLists(t *testing.T) {
	in, db := newTestIngester(t)
	ctx := context.Background()

	res, err := in.Apply(ctx, collector.Payload{7: nil, 8: {}, 9: {"a"}})
	require.NoError(t, err)
	assert.Equal(t, Result{Champions: 1, Fed: 1}, res)

	ids, err := db.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{9}, ids)
}

// unstoredUpdater runs fn against a fresh champion and then fails as if the
// store had rejected the write.
type unstoredUpdater struct{}

func (unstoredUpdater) Update(_ context.Context, id uint32, fn func(c *champion.Champion) error) error {
	if err := fn(champion.New(id)); err != nil {
		return err
	}
	return errFlaky
}

func TestApplyCountsFeedsOnlyWhenStored(t *testing.T) {
	learned := func() float64 {
		return testutil.ToFloat64(metrics.NicknamesFed.WithLabelValues(metrics.FeedLearned))
	}
	ctx := context.Background()

	before := learned()
	res, err := NewIngester(unstoredUpdater{}, 1).Apply(ctx, collector.Payload{1: {"foo", "bar"}})
	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, Result{Failed: 1}, res)
	assert.Equal(t, before, learned())

	in, _ := newTestIngester(t)
	_, err = in.Apply(ctx, collector.Payload{1: {"foo", "bar"}})
	require.NoError(t, err)
	assert.Equal(t, before+2, learned())
}

type flakyUpdater struct {
	inner   Updater
	failing uint32
}

var errFlaky = errors.New("backend unavailable")

func (f *flakyUpdater) Update(ctx context.Context, id uint32, fn func(c *champion.Champion) error) error {
	if id == f.failing {
		return errFlaky
	}
	return f.inner.Update(ctx, id, fn)
}

func TestApplyIsolatesFailures(t *testing.T) {
	db := storage.NewDatabase(storage.NewMemoryBackend())
	t.Cleanup(func() { _ = db.Close() })
	in := NewIngester(&flakyUpdater{inner: registry.New(db), failing: 2}, 0)
	ctx := context.Background()

	res, err := in.Apply(ctx, collector.Payload{
		1: {"foo"},
		2: {"bar"},
		3: {"baz"},
	})
	require.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "champion 2")
	assert.Equal(t, Result{Champions: 2, Fed: 2, Failed: 1}, res)

	assert.True(t, db.Load(ctx, 1).Contains("foo"))
	assert.True(t, db.Load(ctx, 3).Contains("baz"))
	_, err = db.Fetch(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
