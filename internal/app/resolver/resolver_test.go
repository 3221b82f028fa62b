package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nowtify/internal/infra/cache"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results []Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type brokenCache struct {
	puts int
}

func (c *brokenCache) Get(context.Context, string) (*cache.Entry, error) {
	return nil, errors.New("connection refused")
}

func (c *brokenCache) Put(context.Context, cache.Entry) error {
	c.puts++
	return errors.New("connection refused")
}

func newMemoryCache(t *testing.T) *cache.MemoryStore {
	t.Helper()
	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)
	return store
}

func TestResolve_CacheRoundTrip(t *testing.T) {
	store := newMemoryCache(t)
	searcher := &fakeSearcher{results: []Result{{Kind: KindVideo, VideoID: "V"}}}
	r := New(WithCache(store), WithSearcher(searcher))
	ctx := context.Background()

	ref, ok := r.Resolve(ctx, "Y - X", "T")
	require.True(t, ok)
	assert.Equal(t, "V", ref)
	r.Flush()

	entry, err := store.Get(ctx, "T")
	require.NoError(t, err)
	assert.Equal(t, "V", entry.VideoRef)
	assert.Equal(t, "Y - X", entry.Title)

	ref, ok = r.Resolve(ctx, "Y - X", "T")
	require.True(t, ok)
	assert.Equal(t, "V", ref)
	assert.Equal(t, 1, searcher.calls(), "second resolution must be served from cache")
}

func TestResolve_CacheHitSkipsSearch(t *testing.T) {
	store := newMemoryCache(t)
	require.NoError(t, store.Put(context.Background(), cache.Entry{TrackID: "T", VideoRef: "cached"}))
	searcher := &fakeSearcher{results: []Result{{Kind: KindVideo, VideoID: "live"}}}
	r := New(WithCache(store), WithSearcher(searcher))

	ref, ok := r.Resolve(context.Background(), "Y - X", "T")

	require.True(t, ok)
	assert.Equal(t, "cached", ref)
	assert.Equal(t, 0, searcher.calls())
}

func TestResolve_BrokenCacheIsAMiss(t *testing.T) {
	broken := &brokenCache{}
	searcher := &fakeSearcher{results: []Result{{Kind: KindVideo, VideoID: "V"}}}
	r := New(WithCache(broken), WithSearcher(searcher))

	ref, ok := r.Resolve(context.Background(), "Y - X", "T")
	r.Flush()

	require.True(t, ok)
	assert.Equal(t, "V", ref)
	assert.Equal(t, 1, searcher.calls())
	assert.Equal(t, 1, broken.puts)
}

func TestResolve_AcceptsOnlyVideos(t *testing.T) {
	tests := []struct {
		name     string
		results  []Result
		err      error
		wantRef  string
		wantFind bool
	}{
		{
			name:     "first result is a video",
			results:  []Result{{Kind: KindVideo, VideoID: "v1"}, {Kind: KindVideo, VideoID: "v2"}},
			wantRef:  "v1",
			wantFind: true,
		},
		{
			name:     "channel before video",
			results:  []Result{{Kind: "youtube#channel"}, {Kind: KindVideo, VideoID: "v2"}},
			wantRef:  "v2",
			wantFind: true,
		},
		{
			name:    "only playlists",
			results: []Result{{Kind: "youtube#playlist"}},
		},
		{
			name: "empty result set",
		},
		{
			name: "provider error",
			err:  errors.New("quotaExceeded"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithSearcher(&fakeSearcher{results: tt.results, err: tt.err}))

			ref, ok := r.Resolve(context.Background(), "Y - X", "T")

			assert.Equal(t, tt.wantFind, ok)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestResolve_NoSearcherNeverFinds(t *testing.T) {
	r := New(WithCache(newMemoryCache(t)))

	ref, ok := r.Resolve(context.Background(), "Y - X", "T")

	assert.False(t, ok)
	assert.Empty(t, ref)
	assert.True(t, r.HasCache())
	assert.False(t, r.HasSearcher())
}

func TestResolve_QuerySuffix(t *testing.T) {
	searcher := &fakeSearcher{results: []Result{{Kind: KindVideo, VideoID: "V"}}}
	r := New(WithSearcher(searcher), WithQuerySuffix("  official audio "))

	_, ok := r.Resolve(context.Background(), "Y - X", "")

	require.True(t, ok)
	assert.Equal(t, []string{"Y - X official audio"}, searcher.queries)
}

func TestResolve_EmptyTrackIDSkipsCache(t *testing.T) {
	store := newMemoryCache(t)
	searcher := &fakeSearcher{results: []Result{{Kind: KindVideo, VideoID: "V"}}}
	r := New(WithCache(store), WithSearcher(searcher))

	_, ok := r.Resolve(context.Background(), "Y - X", "")
	r.Flush()

	require.True(t, ok)
	assert.Equal(t, 0, store.Len())
}
