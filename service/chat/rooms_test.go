package chat

import (
	"sort"
	"testing"
)

func TestRoomJoinLeave(t *testing.T) {
	rt := NewRoomTable()
	room := RoomName("conv1")

	rt.Join("c1", room)
	rt.Join("c1", room) // idempotent
	rt.Join("c2", room)

	members := rt.MembersOf(room)
	sort.Strings(members)
	if len(members) != 2 || members[0] != "c1" || members[1] != "c2" {
		t.Fatalf("unexpected members %v", members)
	}

	rt.Leave("c1", room)
	rt.Leave("c1", room) // non-member leave is a no-op
	if got := rt.MembersOf(room); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("unexpected members after leave %v", got)
	}

	rt.Leave("c2", room)
	if got := rt.MembersOf(room); got != nil {
		t.Fatalf("empty room should report no members, got %v", got)
	}
}

func TestRoomLeaveAll(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("c1", RoomName("a"))
	rt.Join("c1", RoomName("b"))
	rt.Join("c2", RoomName("a"))

	rt.LeaveAll("c1")

	if got := rt.RoomsOf("c1"); len(got) != 0 {
		t.Fatalf("c1 should be in no rooms, got %v", got)
	}
	if got := rt.MembersOf(RoomName("a")); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("room a should keep c2 only, got %v", got)
	}
	if got := rt.MembersOf(RoomName("b")); got != nil {
		t.Fatalf("room b should be gone, got %v", got)
	}
}

func TestRoomJoinIgnoresEmpty(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("", RoomName("a"))
	rt.Join("c1", "")
	if got := rt.MembersOf(RoomName("a")); got != nil {
		t.Fatalf("expected no members, got %v", got)
	}
}
