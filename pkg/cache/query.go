package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/merge"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrFetchCancelled is returned by Fetch when the key was cancelled while
	// the fetch was in flight; the fetched value was discarded.
	ErrFetchCancelled = errors.New("fetch cancelled")

	// ErrNoFetcher is returned when no Fetcher is registered for a key
	ErrNoFetcher = errors.New("no fetcher registered")
)

// Fetcher loads a fresh value for a key
type Fetcher func(ctx context.Context) (*types.Envelope, error)

type entry struct {
	value      *types.Envelope
	generation uint64
	stale      bool
	inFlight   int
	err        error
	updatedAt  time.Time
}

// QueryCache is an in-memory async cache implementing Adapter.
//
// Each key carries a generation counter. A fetch remembers the generation it
// started at and only stores its result if the generation is unchanged when
// it returns; CancelInFlight bumps the generation.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	fetchers map[Key]Fetcher
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   zerolog.Logger
}

var _ Adapter = (*QueryCache)(nil)

// NewQueryCache creates an empty cache
func NewQueryCache() *QueryCache {
	ctx, cancel := context.WithCancel(context.Background())
	return &QueryCache{
		entries:  make(map[Key]*entry),
		fetchers: make(map[Key]Fetcher),
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.WithComponent("cache"),
	}
}

// Register sets the fetcher used by Fetch and background refetches of key
func (c *QueryCache) Register(key Key, fetcher Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchers[key] = fetcher
}

func (c *QueryCache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached value, fetching it first when missing or stale
func (c *QueryCache) Get(ctx context.Context, key Key) (*types.Envelope, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.value != nil && !e.stale {
		value := merge.CloneEnvelope(e.value)
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	return c.Fetch(ctx, key)
}

// Fetch runs the key's fetcher and stores the result unless the key was
// cancelled meanwhile.
func (c *QueryCache) Fetch(ctx context.Context, key Key) (*types.Envelope, error) {
	c.mu.Lock()
	fetcher, ok := c.fetchers[key]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, key)
	}
	e := c.entry(key)
	generation := e.generation
	e.inFlight++
	c.mu.Unlock()

	timer := metrics.NewTimer()
	value, err := fetcher(ctx)
	timer.ObserveDurationVec(metrics.FetchDuration, string(key))

	c.mu.Lock()
	defer c.mu.Unlock()

	e.inFlight--
	if e.generation != generation {
		metrics.FetchesCancelled.WithLabelValues(string(key)).Inc()
		c.logger.Debug().Str("key", string(key)).Msg("discarding result of cancelled fetch")
		return merge.CloneEnvelope(e.value), ErrFetchCancelled
	}
	if err != nil {
		e.err = err
		return nil, err
	}

	e.value = merge.CloneEnvelope(value)
	e.stale = false
	e.err = nil
	e.updatedAt = time.Now()
	return merge.CloneEnvelope(value), nil
}

// GetCurrent returns a copy of the cached value, or nil
func (c *QueryCache) GetCurrent(key Key) *types.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	return merge.CloneEnvelope(e.value)
}

// CancelInFlight makes outstanding fetches of key discard their results
func (c *QueryCache) CancelInFlight(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	e.generation++
	if e.inFlight > 0 {
		c.logger.Debug().
			Str("key", string(key)).
			Int("in_flight", e.inFlight).
			Msg("cancelled in-flight fetches")
	}
	return nil
}

// SetCurrent stores a copy of value
func (c *QueryCache) SetCurrent(key Key, value *types.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	e.value = merge.CloneEnvelope(value)
	e.updatedAt = time.Now()
}

// Invalidate marks key stale and refetches it in the background when a
// fetcher is registered. Use Wait to block until the refetch settles.
func (c *QueryCache) Invalidate(key Key) {
	metrics.CacheInvalidations.WithLabelValues(string(key)).Inc()

	c.mu.Lock()
	c.entry(key).stale = true
	_, ok := c.fetchers[key]
	closed := c.ctx.Err() != nil
	if ok && !closed {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	if !ok || closed {
		return
	}

	go func() {
		defer c.wg.Done()
		if _, err := c.Fetch(c.ctx, key); err != nil && !errors.Is(err, ErrFetchCancelled) {
			c.logger.Warn().Err(err).Str("key", string(key)).Msg("background refetch failed")
		}
	}()
}

// IsStale reports whether key has been invalidated since its last successful fetch
func (c *QueryCache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && e.stale
}

// LastError returns the error of the most recent failed fetch of key, if any
func (c *QueryCache) LastError(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.err
	}
	return nil
}

// Wait blocks until every background refetch has settled
func (c *QueryCache) Wait() {
	c.wg.Wait()
}

// Close stops scheduling background refetches and waits for running ones
func (c *QueryCache) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}
