package chat

import (
	"sync"
)

// Presence tracks user -> open connection IDs for this node. A user is
// online iff their set is non-empty. State is process-local and resets on
// restart; the redis mirror carries the cross-node view.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]map[string]struct{})}
}

// RecordConnect adds the connection and reports whether this was the
// user's offline->online transition. The check is atomic with the insert
// so concurrent connects yield exactly one transition.
func (p *Presence) RecordConnect(userID, connID string) (first bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.byUser[userID]
	if set == nil {
		set = make(map[string]struct{})
		p.byUser[userID] = set
		first = true
	}
	set[connID] = struct{}{}
	return first
}

// RecordDisconnect removes the connection and reports whether the user
// just went offline. Removing an unknown connection is a no-op and never
// reports a transition.
func (p *Presence) RecordDisconnect(userID, connID string) (last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.byUser[userID]
	if set == nil {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.byUser, userID)
		return true
	}
	return false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.byUser))
	for u := range p.byUser {
		out = append(out, u)
	}
	return out
}

// ConnectionsFor returns all of the user's connection IDs (multi-device).
func (p *Presence) ConnectionsFor(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// ConnectionsExcept returns every connection whose owner is not the given
// user; the global-broadcast audience for presence events.
func (p *Presence) ConnectionsExcept(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for u, set := range p.byUser {
		if u == userID {
			continue
		}
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}
