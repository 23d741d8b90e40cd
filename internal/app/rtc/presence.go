/*
Package rtc contains the core logic of the real-time layer.

This file defines the Presence registry: the live mapping from an
authenticated user id to the set of connections currently open for that user.
A user may hold several simultaneous connections (two browser tabs); a
connection belongs to at most one user at a time.
*/
package rtc

import (
	"sync"

	"github.com/rs/zerolog"

	"campushub/internal/pkg/logx"
)

// Presence maps authenticated user ids to their live sessions. All methods are
// safe for concurrent use from independent connection-handling goroutines; a
// single RWMutex guards both indexes, with one brief critical section per
// connect/disconnect event and read-locked lookups on the fan-out path.
type Presence struct {
	mu sync.RWMutex

	// users indexes sessions by user id, then by connection id.
	users map[string]map[string]*Session

	// owners maps a connection id back to the user id that joined it.
	// It keeps Leave O(1): no scan over all users is ever needed.
	owners map[string]string

	logger zerolog.Logger
}

// NewPresence constructs an empty Presence registry.
func NewPresence() *Presence {
	return &Presence{
		users:  make(map[string]map[string]*Session),
		owners: make(map[string]string),
		logger: logx.Logger().With().Str("component", "presence").Logger(),
	}
}

// Join adds the session under the user's membership set. Calling Join twice
// with the same (userID, connID) pair is a no-op, not an error. A connection
// previously joined under a different user is moved, preserving the invariant
// that a connection appears in at most one user's set.
func (p *Presence) Join(userID, connID string, session *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if owner, ok := p.owners[connID]; ok {
		if owner == userID {
			return
		}
		p.detachLocked(owner, connID)
	}

	set, ok := p.users[userID]
	if !ok {
		set = make(map[string]*Session)
		p.users[userID] = set
	}
	set[connID] = session
	p.owners[connID] = userID

	p.logger.Debug().
		Str("user_id", userID).
		Str("conn_id", connID).
		Int("connections", len(set)).
		Msg("Connection joined presence.")
}

// Leave removes the connection from whichever user it belongs to. It is a
// no-op (not an error) if the connection was never joined or already removed.
func (p *Presence) Leave(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, ok := p.owners[connID]
	if !ok {
		return
	}
	p.detachLocked(owner, connID)

	p.logger.Debug().
		Str("user_id", owner).
		Str("conn_id", connID).
		Msg("Connection left presence.")
}

// detachLocked removes connID from owner's set. Caller must hold p.mu.
func (p *Presence) detachLocked(owner, connID string) {
	delete(p.owners, connID)

	set, ok := p.users[owner]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.users, owner)
	}
}

// ConnectionsFor returns a snapshot of the user's current live sessions. The
// snapshot is consistent as of the last Join/Leave call; the returned slice is
// owned by the caller and may be empty.
func (p *Presence) ConnectionsFor(userID string) []*Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set, ok := p.users[userID]
	if !ok {
		return nil
	}

	sessions := make([]*Session, 0, len(set))
	for _, s := range set {
		sessions = append(sessions, s)
	}
	return sessions
}

// ConnectionCount returns the number of live connections for the user.
func (p *Presence) ConnectionCount(userID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.users[userID])
}
