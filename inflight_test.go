package ajarin

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("GET", "/modules", nil)
	b := Fingerprint("GET", "/modules", nil)
	if a != b {
		t.Errorf("identical requests produced different fingerprints: %q vs %q", a, b)
	}

	variants := []string{
		Fingerprint("POST", "/modules", nil),
		Fingerprint("GET", "/lessons", nil),
		Fingerprint("GET", "/modules", []byte(`{"page":2}`)),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d collided with base fingerprint", i)
		}
	}

	// Body differences must be reflected even for same method+path.
	b1 := Fingerprint("POST", "/answers", []byte(`{"answer":"a"}`))
	b2 := Fingerprint("POST", "/answers", []byte(`{"answer":"b"}`))
	if b1 == b2 {
		t.Error("different bodies produced the same fingerprint")
	}
}

func TestRegistryShareAndComplete(t *testing.T) {
	registry := NewInFlightRegistry()
	fp := Fingerprint("GET", "/modules", nil)

	owner, isOwner := registry.Acquire(fp, "/modules", func() {})
	if !isOwner {
		t.Fatal("first Acquire should own the request")
	}
	waiter, isOwner := registry.Acquire(fp, "/modules", func() {})
	if isOwner {
		t.Fatal("second Acquire of the same fingerprint should join, not own")
	}
	if waiter != owner {
		t.Fatal("waiter should share the owner's entry")
	}

	want := &Result{StatusCode: 200, Body: []byte(`{"success":true}`)}
	go registry.Complete(fp, want, nil)

	got, err := waiter.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got != want {
		t.Errorf("Wait() = %+v, want shared result", got)
	}
	if registry.Len() != 0 {
		t.Errorf("registry still holds %d entries after completion", registry.Len())
	}
}

func TestRegistryLatestWinsEviction(t *testing.T) {
	registry := NewInFlightRegistry()
	oldFP := Fingerprint("GET", "/modules", nil)
	newFP := Fingerprint("GET", "/modules", []byte(`{"page":2}`))

	cancelled := false
	old, isOwner := registry.Acquire(oldFP, "/modules", func() { cancelled = true })
	if !isOwner {
		t.Fatal("expected ownership of first request")
	}

	// Different fingerprint, same endpoint: the newcomer evicts the old one.
	_, isOwner = registry.Acquire(newFP, "/modules", func() {})
	if !isOwner {
		t.Fatal("expected ownership of superseding request")
	}
	if !cancelled {
		t.Error("superseded request's cancel func was not invoked")
	}

	result, err := old.Wait(context.Background())
	if result != nil {
		t.Errorf("evicted request returned a result: %+v", result)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassAbort {
		t.Errorf("evicted request error = %v, want Abort-class APIError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("evicted request error should unwrap to context.Canceled")
	}

	if registry.Len() != 1 {
		t.Errorf("registry holds %d entries, want only the superseding one", registry.Len())
	}
}

func TestRegistryNoEvictionAcrossEndpoints(t *testing.T) {
	registry := NewInFlightRegistry()

	modules, _ := registry.Acquire(Fingerprint("GET", "/modules", nil), "/modules", func() {})
	_, isOwner := registry.Acquire(Fingerprint("GET", "/lessons", nil), "/lessons", func() {})
	if !isOwner {
		t.Fatal("expected ownership of second endpoint's request")
	}

	select {
	case <-modules.done:
		t.Error("request to a different endpoint must not be evicted")
	default:
	}
	if registry.Len() != 2 {
		t.Errorf("registry holds %d entries, want 2", registry.Len())
	}
}

func TestRegistryCancel(t *testing.T) {
	registry := NewInFlightRegistry()
	fp := Fingerprint("DELETE", "/sessions/7", nil)

	entry, _ := registry.Acquire(fp, "/sessions/7", func() {})
	registry.Cancel(fp)

	_, err := entry.Wait(context.Background())
	if !IsAbort(err) {
		t.Errorf("cancelled request error = %v, want abort", err)
	}

	// Cancellation removes the entry immediately: a fresh call owns anew.
	_, isOwner := registry.Acquire(fp, "/sessions/7", func() {})
	if !isOwner {
		t.Error("Acquire after Cancel should own a fresh request")
	}

	// Cancelling an unknown fingerprint is a no-op.
	registry.Cancel("no-such-fingerprint")
}

func TestRegistryCancelAll(t *testing.T) {
	registry := NewInFlightRegistry()
	entries := []*InFlightEntry{}
	for _, route := range []string{"/modules", "/lessons", "/users/progress"} {
		entry, _ := registry.Acquire(Fingerprint("GET", route, nil), route, func() {})
		entries = append(entries, entry)
	}

	registry.CancelAll()

	if registry.Len() != 0 {
		t.Errorf("registry holds %d entries after CancelAll, want 0", registry.Len())
	}
	for _, entry := range entries {
		if _, err := entry.Wait(context.Background()); !IsAbort(err) {
			t.Errorf("entry for %s error = %v, want abort", entry.endpoint, err)
		}
	}
}

func TestWaitHonorsWaiterContext(t *testing.T) {
	registry := NewInFlightRegistry()
	entry, _ := registry.Acquire(Fingerprint("GET", "/openai/hint", nil), "/openai/hint", func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := entry.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}

	// The waiter leaving must not tear down the request for other callers.
	if registry.Len() != 1 {
		t.Errorf("registry holds %d entries, want the request still outstanding", registry.Len())
	}
}
