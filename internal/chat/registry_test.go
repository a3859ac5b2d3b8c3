package chat

import (
	"sync"
	"testing"
	"time"
)

func testClient(userID int, username string) *Client {
	return &Client{
		send:          make(chan []byte, sendBuffer),
		userID:        userID,
		username:      username,
		authenticated: userID != 0,
		lastSeen:      time.Now(),
	}
}

func TestRegistryUnregisterIsSynchronousAndIdempotent(t *testing.T) {
	r := NewRegistry()
	c := testClient(1, "alice")

	r.Register(c)
	if got := len(r.FindByUser(1)); got != 1 {
		t.Fatalf("FindByUser after register = %d entries, want 1", got)
	}

	if !r.Unregister(c) {
		t.Fatal("first Unregister returned false")
	}
	// Once Unregister has returned, no reader may observe the entry.
	if got := len(r.FindByUser(1)); got != 0 {
		t.Fatalf("FindByUser after unregister = %d entries, want 0", got)
	}
	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("Snapshot after unregister = %d entries, want 0", got)
	}
	if r.Unregister(c) {
		t.Fatal("second Unregister returned true, want false")
	}
}

func TestRegistryMultiTabAndSnapshotDeduplication(t *testing.T) {
	r := NewRegistry()
	tab1 := testClient(1, "alice")
	tab2 := testClient(1, "alice")
	bob := testClient(2, "bob")
	anon := testClient(0, "")

	for _, c := range []*Client{tab1, tab2, bob, anon} {
		r.Register(c)
	}

	if got := len(r.FindByUser(1)); got != 2 {
		t.Fatalf("FindByUser(1) = %d entries, want 2 (multi-tab)", got)
	}

	snapshot := r.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Snapshot = %d entries, want 2 (deduplicated, authenticated only)", len(snapshot))
	}
	seen := map[int]string{}
	for _, u := range snapshot {
		if _, dup := seen[u.UserID]; dup {
			t.Fatalf("Snapshot contains user %d twice", u.UserID)
		}
		seen[u.UserID] = u.Username
	}
	if seen[1] != "alice" || seen[2] != "bob" {
		t.Fatalf("Snapshot = %v, want alice and bob", seen)
	}

	// The unauthenticated placeholder is open but never in presence.
	if got := len(r.All()); got != 4 {
		t.Fatalf("All = %d entries, want 4", got)
	}
}

func TestRegistryTouchAndStale(t *testing.T) {
	r := NewRegistry()
	fresh := testClient(1, "alice")
	stale := testClient(2, "bob")
	r.Register(fresh)
	r.Register(stale)

	stale.lastSeen = time.Now().Add(-time.Minute)
	r.Touch(fresh)

	evict := r.Stale(30 * time.Second)
	if len(evict) != 1 || evict[0] != stale {
		t.Fatalf("Stale = %v, want exactly the silent connection", evict)
	}

	// A touched connection never goes stale.
	r.Touch(stale)
	if got := len(r.Stale(30 * time.Second)); got != 0 {
		t.Fatalf("Stale after Touch = %d entries, want 0", got)
	}
}

func TestRegistrySendBackpressureAndGoneClient(t *testing.T) {
	r := NewRegistry()
	c := &Client{send: make(chan []byte, 1), userID: 1, authenticated: true}
	r.Register(c)

	if !r.Send(c, []byte("one")) {
		t.Fatal("Send to empty buffer failed")
	}
	if r.Send(c, []byte("two")) {
		t.Fatal("Send to full buffer succeeded, want false")
	}

	r.Unregister(c)
	if r.Send(c, []byte("three")) {
		t.Fatal("Send to unregistered client succeeded, want false")
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			c := testClient(userID, "user")
			r.Register(c)
			r.Touch(c)
			r.Snapshot()
			r.FindByUser(userID)
			r.Unregister(c)
		}(i + 1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			r.Snapshot()
			r.All()
		}
	}()

	wg.Wait()
	<-done

	if got := len(r.All()); got != 0 {
		t.Fatalf("registry not empty after churn: %d entries", got)
	}
}
