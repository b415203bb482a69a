package chat

import (
	"sync"
)

// RoomTable maps conversation rooms to subscribed connections. Membership
// is per-connection and dies with it: a reconnecting client must re-issue
// conversation:join, durable participancy does not subscribe it.
type RoomTable struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // room -> conn set
	byConn map[string]map[string]struct{} // conn -> room set
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join is idempotent; re-joining a room is a no-op.
func (t *RoomTable) Join(connID, roomID string) {
	if connID == "" || roomID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.rooms[roomID]
	if set == nil {
		set = make(map[string]struct{})
		t.rooms[roomID] = set
	}
	set[connID] = struct{}{}

	rs := t.byConn[connID]
	if rs == nil {
		rs = make(map[string]struct{})
		t.byConn[connID] = rs
	}
	rs[roomID] = struct{}{}
}

// Leave is an idempotent no-op for non-members.
func (t *RoomTable) Leave(connID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(connID, roomID)
}

func (t *RoomTable) leaveLocked(connID, roomID string) {
	if set := t.rooms[roomID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(t.rooms, roomID)
		}
	}
	if rs := t.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(t.byConn, connID)
		}
	}
}

// LeaveAll removes the connection from every room. Must run before the
// connection ID is discarded or the table leaks dead members that fan-out
// would keep targeting.
func (t *RoomTable) LeaveAll(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID := range t.byConn[connID] {
		t.leaveLocked(connID, roomID)
	}
}

func (t *RoomTable) MembersOf(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := t.rooms[roomID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// RoomsOf lists the rooms a connection has joined (debug/tests).
func (t *RoomTable) RoomsOf(connID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rs := t.byConn[connID]
	out := make([]string, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	return out
}

// RoomName builds the canonical room ID for a conversation.
func RoomName(conversationID string) string {
	return "conversation:" + conversationID
}
