package ajarin

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"sync"
)

// Fingerprint builds the deduplication key identifying a logical request:
// method + normalized path + serialized body. Two concurrent calls with an
// identical fingerprint are the same logical request.
func Fingerprint(method, normalizedPath string, body []byte) string {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(normalizedPath))
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		h.Write(sum[:])
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// InFlightEntry represents an outstanding request shared between callers.
type InFlightEntry struct {
	fingerprint string
	endpoint    string
	cancel      context.CancelFunc
	done        chan struct{}

	mu      sync.Mutex
	result  *Result
	err     error
	settled bool
	waiters int
}

// Wait blocks until the owning request settles or the waiter's own context
// cancels.
func (e *InFlightEntry) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.result, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *InFlightEntry) settle(result *Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settled {
		return
	}
	e.result = result
	e.err = err
	e.settled = true
	close(e.done)
}

// InFlightRegistry maps request fingerprints to outstanding requests so
// logically identical concurrent calls share one network round-trip, and a
// new call to an endpoint evicts the previous one (latest-wins). A
// fingerprint maps to at most one entry at any time; entries are removed the
// moment they settle, so no stale entries persist.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]*InFlightEntry
	byRoute map[string]string // endpoint -> owning fingerprint
}

// NewInFlightRegistry returns an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]*InFlightEntry),
		byRoute: make(map[string]string),
	}
}

// Acquire joins or creates the in-flight entry for a fingerprint. If an
// entry already exists the caller becomes a waiter (owner=false) and must
// not issue its own network call. Otherwise a new entry is created
// (owner=true) after evicting any outstanding request to the same endpoint:
// latest-wins, distinct from fingerprint-level sharing. cancel aborts the
// new entry's transport call. Calls carrying their own cancellation signal
// bypass the registry and never go through Acquire.
func (r *InFlightRegistry) Acquire(fingerprint, endpoint string, cancel context.CancelFunc) (*InFlightEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[fingerprint]; ok {
		entry.mu.Lock()
		entry.waiters++
		entry.mu.Unlock()
		return entry, false
	}

	if prior, ok := r.byRoute[endpoint]; ok && prior != fingerprint {
		r.abortLocked(prior)
	}

	entry := &InFlightEntry{
		fingerprint: fingerprint,
		endpoint:    endpoint,
		cancel:      cancel,
		done:        make(chan struct{}),
		waiters:     1,
	}
	r.entries[fingerprint] = entry
	r.byRoute[endpoint] = fingerprint
	return entry, true
}

// Complete settles an entry and removes it from the registry, releasing all
// waiters with the shared outcome.
func (r *InFlightRegistry) Complete(fingerprint string, result *Result, err error) {
	r.mu.Lock()
	entry, ok := r.entries[fingerprint]
	if ok {
		r.removeLocked(entry)
	}
	r.mu.Unlock()

	if ok {
		entry.settle(result, err)
	}
}

// Cancel aborts the in-flight request for a fingerprint, if any. The
// underlying transport call is aborted and the entry removed immediately; a
// subsequent call with the same fingerprint issues a fresh network call.
func (r *InFlightRegistry) Cancel(fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked(fingerprint)
}

// CancelAll aborts every in-flight request; used for caller-driven teardown.
func (r *InFlightRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fingerprint := range r.entries {
		r.abortLocked(fingerprint)
	}
}

// Len reports the number of outstanding entries.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *InFlightRegistry) abortLocked(fingerprint string) {
	entry, ok := r.entries[fingerprint]
	if !ok {
		return
	}
	r.removeLocked(entry)
	if entry.cancel != nil {
		entry.cancel()
	}
	entry.settle(nil, &APIError{
		Class:    ErrorClassAbort,
		Message:  "request cancelled",
		Endpoint: entry.endpoint,
		Cause:    context.Canceled,
	})
}

func (r *InFlightRegistry) removeLocked(entry *InFlightEntry) {
	delete(r.entries, entry.fingerprint)
	if r.byRoute[entry.endpoint] == entry.fingerprint {
		delete(r.byRoute, entry.endpoint)
	}
}
