package querycache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrUnknownQuery is returned when a key was never registered
var ErrUnknownQuery = errors.New("unknown query")

// FetchFunc loads the data for one query
type FetchFunc func(ctx context.Context) (any, error)

// Query describes a cached request. Keys are slash separated, e.g.
// "notifications/unread-count". A zero Interval fetches once and then only
// on invalidation.
type Query struct {
	Key      string
	Fetch    FetchFunc
	Interval time.Duration
}

// Entry is the last known result of a query. A failed refetch keeps the
// previous Data and records Err.
type Entry struct {
	Data      any
	Err       error
	UpdatedAt time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces the real clock
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

type query struct {
	Query
	entry   Entry
	fetched bool
	refetch chan struct{}
}

// Cache polls registered queries while started and serves their last
// results. It never reads from the live connection.
type Cache struct {
	clock clockwork.Clock

	mu      sync.Mutex
	queries map[string]*query
	epoch   uint64
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	subscribers map[int]chan string
	nextSubID   int
}

// New creates an idle cache
func New(opts ...Option) *Cache {
	c := &Cache{
		clock:       clockwork.NewRealClock(),
		queries:     make(map[string]*query),
		subscribers: make(map[int]chan string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a query. Registering an existing key replaces its fetcher
// and drops its cached entry. A query registered while the cache runs
// starts polling immediately.
func (c *Cache) Register(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.queries[q.Key]; ok {
		close(old.refetch)
	}
	entry := &query{Query: q, refetch: make(chan struct{}, 1)}
	c.queries[q.Key] = entry

	if c.runCtx != nil {
		c.startWorkerLocked(c.runCtx, entry)
	}
}

// Start fetches every registered query and keeps polling those with an
// interval until Stop is called or ctx is done. Calling Start again restarts
// the pollers.
func (c *Cache) Start(ctx context.Context) {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel
	for _, q := range c.queries {
		c.startWorkerLocked(runCtx, q)
	}
	log.Debug().Int("queries", len(c.queries)).Msg("query cache started")
}

// Stop cancels all pollers and waits for them to exit. Cached entries are
// kept. Safe to call when not running.
func (c *Cache) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runCtx = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	log.Debug().Msg("query cache stopped")
}

// Running reports whether pollers are active
func (c *Cache) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCtx != nil
}

// Get returns the cached entry for key. ok is false until the first fetch
// completes.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queries[key]
	if !ok || !q.fetched {
		return Entry{}, false
	}
	return q.entry, true
}

// Lookup returns the cached data for key as T. It reports false when nothing
// was fetched yet or the data has another type.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	entry, ok := c.Get(key)
	if !ok || entry.Data == nil {
		return zero, false
	}
	data, ok := entry.Data.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// Fetch runs the query now, stores the result and returns it. It is how
// on-demand queries are loaded.
func (c *Cache) Fetch(ctx context.Context, key string) (Entry, error) {
	c.mu.Lock()
	q, ok := c.queries[key]
	epoch := c.epoch
	c.mu.Unlock()
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownQuery, key)
	}

	entry := c.run(ctx, q, epoch)
	return entry, entry.Err
}

// Invalidate marks every query whose key equals a prefix or starts with a
// prefix segment as stale. Running pollers refetch stale queries at once.
// With no prefixes every query is invalidated.
func (c *Cache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, q := range c.queries {
		if !matches(key, prefixes) {
			continue
		}
		log.Debug().Str("key", key).Msg("query invalidated")
		if c.runCtx == nil {
			continue
		}
		select {
		case q.refetch <- struct{}{}:
		default:
		}
	}
}

// Clear drops every cached entry. Registrations are kept and results of
// fetches already in flight are discarded.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, q := range c.queries {
		q.entry = Entry{}
		q.fetched = false
	}
}

func (c *Cache) startWorkerLocked(ctx context.Context, q *query) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.poll(ctx, q)
	}()
}

func (c *Cache) poll(ctx context.Context, q *query) {
	c.refresh(ctx, q)

	var tick <-chan time.Time
	if q.Interval > 0 {
		ticker := c.clock.NewTicker(q.Interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			c.refresh(ctx, q)
		case _, ok := <-q.refetch:
			if !ok {
				// replaced by a newer registration
				return
			}
			c.refresh(ctx, q)
		}
	}
}

func (c *Cache) refresh(ctx context.Context, q *query) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.run(ctx, q, epoch)
}

// run fetches with a single immediate retry and stores the outcome unless
// the cache was cleared or the query replaced in the meantime.
func (c *Cache) run(ctx context.Context, q *query, epoch uint64) Entry {
	data, err := q.Fetch(ctx)
	if err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Str("key", q.Key).Msg("query failed, retrying")
		data, err = q.Fetch(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil && err != nil {
		// cancelled by Stop; keep whatever was cached
		return Entry{Data: q.entry.Data, Err: err, UpdatedAt: q.entry.UpdatedAt}
	}
	if epoch != c.epoch || c.queries[q.Key] != q {
		if err != nil {
			return Entry{Err: err}
		}
		return Entry{Data: data, UpdatedAt: c.clock.Now()}
	}

	if err != nil {
		log.Warn().Err(err).Str("key", q.Key).Msg("query fetch failed")
		q.entry.Err = err
	} else {
		q.entry = Entry{Data: data, UpdatedAt: c.clock.Now()}
		c.notifyLocked(q.Key)
	}
	q.fetched = true
	return q.entry
}

// Subscribe returns a channel receiving the key of every query that stored
// fresh data. Keys are dropped while the channel is full. The returned func
// unsubscribes and closes the channel.
func (c *Cache) Subscribe(buffer int) (<-chan string, func()) {
	if buffer < 1 {
		buffer = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan string, buffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

func (c *Cache) notifyLocked(key string) {
	for _, ch := range c.subscribers {
		select {
		case ch <- key:
		default:
		}
	}
}

func matches(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if key == p || strings.HasPrefix(key, p+"/") {
			return true
		}
	}
	return false
}
