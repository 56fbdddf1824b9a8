// Package singleflight coalesces concurrent executions of the same
// operation so only one runs and every caller shares its outcome. The
// request core uses it for the shared token-refresh slot.
package singleflight

import (
	"context"
	"sync"
)

// Group manages a set of in-flight calls keyed by string. The zero value is
// not usable; construct with New.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// call represents an active or completed function call.
type call struct {
	done chan struct{}
	val  interface{}
	err  error
}

// New creates a new singleflight Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn, making sure that only one execution is in flight for key
// at a time. Duplicate callers block until the original completes and
// receive the same results, or return early with ctx.Err() if their own
// context cancels first (the original keeps running for the others). The
// entry is removed the moment the call settles: a settled call is never
// re-joined.
func (g *Group) Do(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// Forget drops the in-flight entry for key, if any, so the next Do starts a
// fresh execution instead of joining the current one. Callers already
// waiting still receive the current execution's outcome.
func (g *Group) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// InFlight reports whether an execution for key is outstanding.
func (g *Group) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}
