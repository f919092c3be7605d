package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/postly/internal/editor/debounce"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type countingStore struct {
	Store
	mu     sync.Mutex
	writes [][]byte
	fail   error
}

func (c *countingStore) Set(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.writes = append(c.writes, data)
	return c.Store.Set(ctx, key, data)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func newPersister(t *testing.T) (*Persister, *countingStore, *debounce.ManualClock) {
	t.Helper()
	clock := debounce.NewManualClock(epoch)
	store := &countingStore{Store: NewMemoryStore()}
	p := NewPersister(store, Options{Clock: clock})
	t.Cleanup(p.Close)
	return p, store, clock
}

func seed(t *testing.T, s Store, d Draft) {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), DefaultKey, data))
}

func stored(t *testing.T, s Store) (Draft, bool) {
	t.Helper()
	data, err := s.Get(context.Background(), DefaultKey)
	if errors.Is(err, ErrNotFound) {
		return Draft{}, false
	}
	require.NoError(t, err)
	var d Draft
	require.NoError(t, json.Unmarshal(data, &d))
	return d, true
}

func TestRapidChangesWriteOnce(t *testing.T) {
	p, store, clock := newPersister(t)

	for _, title := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		p.Track(Draft{Title: title, Content: "body"})
		clock.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, Dirty, p.State())
	assert.Equal(t, 0, store.count())

	clock.Advance(DefaultDelay)

	require.Equal(t, 1, store.count())
	d, ok := stored(t, store)
	require.True(t, ok)
	assert.Equal(t, "Hello", d.Title)
	assert.Equal(t, epoch.Add(2*time.Second+DefaultDelay).UnixMilli(), d.Timestamp)
	assert.Equal(t, []int64{}, d.SelectedCategories)
	assert.Equal(t, Clean, p.State())
}

func TestUnchangedSnapshotIsNotRewritten(t *testing.T) {
	p, store, clock := newPersister(t)

	p.Track(Draft{Title: "T"})
	clock.Advance(DefaultDelay)
	p.Track(Draft{Title: "T"})
	clock.Advance(DefaultDelay)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, Clean, p.State())
}

func TestFreshness(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		offered bool
	}{
		{"one second old", time.Second, true},
		{"just under a day", DefaultFreshness - time.Millisecond, true},
		{"exactly a day", DefaultFreshness, false},
		{"just over a day", DefaultFreshness + time.Millisecond, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newPersister(t)
			seed(t, store, Draft{Title: "T", Content: "C", Timestamp: epoch.Add(-tt.age).UnixMilli()})

			offer := p.Load(context.Background())

			_, kept := stored(t, store)
			if tt.offered {
				require.NotNil(t, offer)
				assert.Equal(t, tt.age, offer.Age)
				assert.True(t, kept)
			} else {
				assert.Nil(t, offer)
				assert.False(t, kept)
			}
		})
	}
}

func TestLoadDiscardsEmptyAndCorrupt(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p, store, _ := newPersister(t)
		seed(t, store, Draft{Author: "only author", Timestamp: epoch.UnixMilli()})

		assert.Nil(t, p.Load(context.Background()))
		_, kept := stored(t, store)
		assert.False(t, kept)
	})

	t.Run("corrupt", func(t *testing.T) {
		p, store, _ := newPersister(t)
		require.NoError(t, store.Set(context.Background(), DefaultKey, []byte("{not json")))

		assert.Nil(t, p.Load(context.Background()))
		_, err := store.Get(context.Background(), DefaultKey)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, Clean, p.State())
	})

	t.Run("missing", func(t *testing.T) {
		p, _, _ := newPersister(t)
		assert.Nil(t, p.Load(context.Background()))
	})
}

func TestRestoreIsIdempotent(t *testing.T) {
	p, store, clock := newPersister(t)
	seed(t, store, Draft{Title: "T", Content: "C", Timestamp: epoch.Add(-time.Second).UnixMilli()})
	require.NotNil(t, p.Load(context.Background()))

	d, ok := p.Restore()
	require.True(t, ok)
	assert.Equal(t, "T", d.Title)

	_, ok = p.Restore()
	assert.False(t, ok)

	p.Track(Draft{Title: "T", Content: "C"})
	clock.Advance(DefaultDelay)
	assert.Equal(t, 1, store.count(), "Expected only the seed write")
	assert.Equal(t, Clean, p.State())
}

func TestDiscardIsIdempotent(t *testing.T) {
	p, store, _ := newPersister(t)
	seed(t, store, Draft{Title: "T", Content: "C", Timestamp: epoch.Add(-time.Second).UnixMilli()})
	require.NotNil(t, p.Load(context.Background()))

	require.NoError(t, p.Discard(context.Background()))
	require.NoError(t, p.Discard(context.Background()))

	_, kept := stored(t, store)
	assert.False(t, kept)
	_, ok := p.Restore()
	assert.False(t, ok)
}

func TestFailedWriteLeavesDirty(t *testing.T) {
	p, store, clock := newPersister(t)
	store.fail = errors.New("quota exceeded")

	p.Track(Draft{Title: "T"})
	clock.Advance(DefaultDelay)
	assert.Equal(t, Dirty, p.State())
	assert.True(t, p.ConfirmLeave("T", ""))

	store.fail = nil
	p.Track(Draft{Title: "T"})
	clock.Advance(DefaultDelay)
	assert.Equal(t, Clean, p.State())
	assert.Equal(t, 1, store.count())
}

func TestStaleWriteKeepsNewerChangeDirty(t *testing.T) {
	p, store, _ := newPersister(t)

	p.Track(Draft{Title: "newer"})
	require.True(t, p.Pending())

	require.NoError(t, p.write(context.Background(), Draft{Title: "older"}))
	assert.Equal(t, Dirty, p.State())
	assert.True(t, p.ConfirmLeave("newer", ""))

	assert.True(t, p.Flush())
	assert.Equal(t, Clean, p.State())
	d, ok := stored(t, store)
	require.True(t, ok)
	assert.Equal(t, "newer", d.Title)
}

func TestSubmittedCancelsAndClears(t *testing.T) {
	p, store, clock := newPersister(t)
	seed(t, store, Draft{Title: "old", Timestamp: epoch.UnixMilli()})

	p.Track(Draft{Title: "new"})
	require.NoError(t, p.Submitted(context.Background()))
	assert.False(t, p.Pending())

	clock.Advance(time.Hour)
	_, kept := stored(t, store)
	assert.False(t, kept)
	assert.Equal(t, 1, store.count())
}

func TestFlushWritesImmediately(t *testing.T) {
	p, store, _ := newPersister(t)

	p.Track(Draft{Content: "x"})
	assert.True(t, p.Flush())

	assert.Equal(t, 1, store.count())
	assert.False(t, p.Flush())
}

func TestConfirmLeave(t *testing.T) {
	p, _, clock := newPersister(t)

	assert.False(t, p.ConfirmLeave("T", "C"), "Expected clean composer to leave freely")

	p.Track(Draft{Title: "T"})
	assert.True(t, p.ConfirmLeave("T", ""))
	assert.False(t, p.ConfirmLeave("", ""))

	clock.Advance(DefaultDelay)
	assert.False(t, p.ConfirmLeave("T", ""))
}
