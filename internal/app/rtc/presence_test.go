package rtc_test

import (
	"fmt"
	"sync"
	"testing"

	"campushub/internal/app/rtc"
)

func TestJoinIsIdempotent(t *testing.T) {
	hub := rtc.NewHub("secret")
	p := hub.Presence()

	s := rtc.NewSession("conn-1", hub)
	p.Join("user-a", "conn-1", s)
	p.Join("user-a", "conn-1", s)

	if got := p.ConnectionCount("user-a"); got != 1 {
		t.Errorf("Expected 1 connection after duplicate Join, got %d", got)
	}
}

func TestLeaveIsIdempotentAndEmptiesSet(t *testing.T) {
	hub := rtc.NewHub("secret")
	p := hub.Presence()

	// Leave before any Join must be a no-op, not an error.
	p.Leave("conn-unknown")

	s := rtc.NewSession("conn-1", hub)
	p.Join("user-a", "conn-1", s)

	p.Leave("conn-1")
	p.Leave("conn-1")

	if got := p.ConnectionsFor("user-a"); len(got) != 0 {
		t.Errorf("Expected empty set after Leave, got %d sessions", len(got))
	}
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	hub := rtc.NewHub("secret")
	p := hub.Presence()

	p.Join("user-a", "conn-1", rtc.NewSession("conn-1", hub))
	p.Join("user-a", "conn-2", rtc.NewSession("conn-2", hub))

	if got := p.ConnectionCount("user-a"); got != 2 {
		t.Fatalf("Expected 2 connections, got %d", got)
	}

	p.Leave("conn-1")

	sessions := p.ConnectionsFor("user-a")
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 connection after one Leave, got %d", len(sessions))
	}
	if sessions[0].ID() != "conn-2" {
		t.Errorf("Expected remaining connection conn-2, got %s", sessions[0].ID())
	}
}

func TestConnectionBelongsToOneUser(t *testing.T) {
	hub := rtc.NewHub("secret")
	p := hub.Presence()

	s := rtc.NewSession("conn-1", hub)
	p.Join("user-a", "conn-1", s)
	p.Join("user-b", "conn-1", s)

	if got := p.ConnectionCount("user-a"); got != 0 {
		t.Errorf("Expected conn-1 detached from user-a, still has %d", got)
	}
	if got := p.ConnectionCount("user-b"); got != 1 {
		t.Errorf("Expected conn-1 attached to user-b, got %d", got)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	hub := rtc.NewHub("secret")
	p := hub.Presence()

	const workers = 32
	const iterations = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", w%4)
			for i := 0; i < iterations; i++ {
				connID := fmt.Sprintf("conn-%d-%d", w, i)
				p.Join(userID, connID, rtc.NewSession(connID, hub))
				p.ConnectionsFor(userID)
				p.Leave(connID)
			}
		}(w)
	}
	wg.Wait()

	for u := 0; u < 4; u++ {
		userID := fmt.Sprintf("user-%d", u)
		if got := p.ConnectionCount(userID); got != 0 {
			t.Errorf("Expected 0 connections left for %s, got %d", userID, got)
		}
	}
}
