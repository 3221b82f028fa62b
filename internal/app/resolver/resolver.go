package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nowtify/internal/infra/cache"
)

// Searcher finds video candidates for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// defaultWriteTimeout bounds a background cache write.
const defaultWriteTimeout = 5 * time.Second

// Resolver maps a track to a playable video reference.
// Both the cache and the searcher are optional; without a cache every lookup
// is a miss, without a searcher every miss resolves to nothing.
type Resolver struct {
	cache        cache.Store
	search       Searcher
	querySuffix  string
	writeTimeout time.Duration

	writes sync.WaitGroup
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables cache-first lookup and write-back.
func WithCache(store cache.Store) Option {
	return func(r *Resolver) {
		r.cache = store
	}
}

// WithSearcher enables live search on cache miss.
func WithSearcher(s Searcher) Option {
	return func(r *Resolver) {
		r.search = s
	}
}

// WithQuerySuffix appends suffix to every live query, e.g. "official audio".
func WithQuerySuffix(suffix string) Option {
	return func(r *Resolver) {
		r.querySuffix = strings.TrimSpace(suffix)
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{writeTimeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasCache reports whether a cache is configured.
func (r *Resolver) HasCache() bool {
	return r.cache != nil
}

// HasSearcher reports whether live search is configured.
func (r *Resolver) HasSearcher() bool {
	return r.search != nil
}

// Resolve returns the video reference for a track and whether one was found.
// Failures of the cache or the search backend are logged and reported as not found.
func (r *Resolver) Resolve(ctx context.Context, displayTitle, trackID string) (string, bool) {
	if ref, ok := r.lookup(ctx, trackID); ok {
		zlog.Debug().Msgf("cache hit: track_id=%s video_ref=%s", trackID, ref)
		return ref, true
	}

	if r.search == nil {
		zlog.Debug().Msgf("no searcher configured: title=%s", displayTitle)
		return "", false
	}

	query := displayTitle
	if r.querySuffix != "" {
		query = displayTitle + " " + r.querySuffix
	}

	results, err := r.search.Search(ctx, query)
	if err != nil {
		zlog.Warn().Msgf("search failed: query=%q error=%v", query, err)
		return "", false
	}

	hit, ok := firstVideo(results)
	if !ok {
		zlog.Info().Msgf("no video found: query=%q results=%d", query, len(results))
		return "", false
	}

	zlog.Info().Msgf("video resolved: title=%q video_ref=%s", displayTitle, hit.VideoID)
	r.rememberAsync(trackID, displayTitle, hit.VideoID)
	return hit.VideoID, true
}

// Flush waits for pending cache writes.
func (r *Resolver) Flush() {
	r.writes.Wait()
}

// lookup treats every cache failure, including not-found, as a miss.
func (r *Resolver) lookup(ctx context.Context, trackID string) (string, bool) {
	if r.cache == nil || trackID == "" {
		return "", false
	}

	entry, err := r.cache.Get(ctx, trackID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			zlog.Warn().Msgf("cache lookup failed: track_id=%s error=%v", trackID, err)
		}
		return "", false
	}
	if entry == nil || entry.VideoRef == "" {
		return "", false
	}
	return entry.VideoRef, true
}

// rememberAsync writes a resolution back to the cache off the caller's path.
func (r *Resolver) rememberAsync(trackID, displayTitle, videoRef string) {
	if r.cache == nil || trackID == "" {
		return
	}

	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()

		// Best effort: the error is dropped after logging.
		_ = r.remember(ctx, trackID, displayTitle, videoRef)
	}()
}

func (r *Resolver) remember(ctx context.Context, trackID, displayTitle, videoRef string) error {
	err := r.cache.Put(ctx, cache.Entry{
		TrackID:  trackID,
		Title:    displayTitle,
		VideoRef: videoRef,
	})
	if err != nil {
		zlog.Warn().Msgf("cache write failed: track_id=%s error=%v", trackID, err)
		return err
	}
	zlog.Debug().Msgf("cached video ref: track_id=%s video_ref=%s", trackID, videoRef)
	return nil
}
