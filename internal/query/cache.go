// Package query holds request results under a logical key so views can
// share one in-flight fetch and drop results that arrive after the key was
// invalidated.
package query

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Result is the outcome of one fetch. Exactly one of Data/Err is meaningful.
type Result[T any] struct {
	Data       T
	Err        error
	Generation uint64
	FetchedAt  time.Time
	// Stale is set when the key was invalidated while the fetch was in
	// flight; the result was not stored.
	Stale bool
}

func (r Result[T]) OK() bool { return r.Err == nil }

type entry[T any] struct {
	gen    uint64
	result *Result[T]
}

// flight is one shared request. Its context ends only when every caller
// waiting on it has gone.
type flight struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Cache is safe for concurrent use. The zero value is not; use New.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	flights map[string]*flight
	seq     uint64
	group   singleflight.Group
	log     *zap.Logger
	now     func() time.Time
}

func New[T any](log *zap.Logger) *Cache[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		flights: make(map[string]*flight),
		log:     log,
		now:     time.Now,
	}
}

func (c *Cache[T]) entryLocked(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	return e
}

// Generation reports the current generation of key.
func (c *Cache[T]) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entryLocked(key).gen
}

// Peek returns the last successful result stored under key.
func (c *Cache[T]) Peek(key string) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	if e.result == nil {
		return Result[T]{}, false
	}
	return *e.result, true
}

// Fetch runs fn for key. Callers arriving while a fetch for the same key and
// generation is in flight wait for it instead of issuing their own. A caller
// whose ctx ends stops waiting and gets ctx.Err(); the shared request is
// cancelled only once no caller is left waiting on it.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn func(context.Context) (T, error)) Result[T] {
	gen, f := c.join(ctx, key)
	ch := c.group.DoChan(f.name, func() (any, error) {
		return fn(f.ctx)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
		c.leave(f)
	case <-ctx.Done():
		c.leave(f)
		return Result[T]{Err: ctx.Err(), Generation: gen, FetchedAt: c.now()}
	}
	data, _ := r.Val.(T)
	if r.Shared {
		c.log.Debug("joined in-flight fetch", zap.String("key", key), zap.Uint64("generation", gen))
	}

	res := Result[T]{Data: data, Err: r.Err, Generation: gen, FetchedAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	if e.gen != gen {
		res.Stale = true
		c.log.Debug("discarding stale result",
			zap.String("key", key),
			zap.Uint64("generation", gen),
			zap.Uint64("current", e.gen))
		return res
	}
	if r.Err == nil {
		stored := res
		e.result = &stored
	}
	return res
}

// join registers a waiter on the flight for key's current generation,
// starting a new flight when none is open. The flight keeps the values of
// the caller that opened it but none of its deadlines.
func (c *Cache[T]) join(ctx context.Context, key string) (uint64, *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.entryLocked(key).gen
	id := key + "#" + strconv.FormatUint(gen, 10)
	f, ok := c.flights[id]
	if !ok {
		c.seq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{
			name:   id + "#" + strconv.FormatUint(c.seq, 10),
			ctx:    fctx,
			cancel: cancel,
		}
		c.flights[id] = f
	}
	f.waiters++
	return gen, f
}

func (c *Cache[T]) leave(f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	for id, open := range c.flights {
		if open == f {
			delete(c.flights, id)
		}
	}
}

// Invalidate drops whatever is stored under key and starts a new
// generation. In-flight fetches of older generations still complete but
// their results come back Stale.
func (c *Cache[T]) Invalidate(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.gen++
	e.result = nil
	c.log.Debug("invalidated", zap.String("key", key), zap.Uint64("generation", e.gen))
	return e.gen
}
