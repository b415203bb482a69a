package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ChatSync/model"
)

// recordingSender captures deliveries so tests can assert the audience.
type recordingSender struct {
	mu    sync.Mutex
	sent  map[string][][]byte
	notif chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		sent:  make(map[string][][]byte),
		notif: make(chan struct{}, 1024),
	}
}

func (r *recordingSender) Send(connID string, payload []byte) error {
	r.mu.Lock()
	r.sent[connID] = append(r.sent[connID], payload)
	r.mu.Unlock()
	r.notif <- struct{}{}
	return nil
}

func (r *recordingSender) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-r.notif:
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries, got %d", n, i)
		}
	}
}

func (r *recordingSender) payloads(connID string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.sent[connID]...)
}

func (r *recordingSender) conns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for c := range r.sent {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func testMessage(convID primitive.ObjectID, sender primitive.ObjectID) *model.Message {
	return &model.Message{
		ID:           primitive.NewObjectID(),
		Conversation: convID,
		Sender:       sender,
		Content:      "hello",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestEngineRoomBroadcast(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	convID := primitive.NewObjectID()
	room := RoomName(convID.Hex())
	rooms.Join("c1", room)
	rooms.Join("c2", room)
	rooms.Join("c3", RoomName("other"))

	e.Publish(NewMessageEvent(testMessage(convID, primitive.NewObjectID())))
	sender.waitFor(t, 2)

	if got := sender.conns(); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("expected delivery to room members only, got %v", got)
	}

	var frame Frame
	if err := json.Unmarshal(sender.sent["c1"][0], &frame); err != nil {
		t.Fatalf("delivered payload is not a frame: %v", err)
	}
	if frame.Event != string(KindMessageNew) {
		t.Fatalf("expected %s frame, got %s", KindMessageNew, frame.Event)
	}
}

func TestEngineRoomExcludesOriginConn(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	room := RoomName("conv1")
	rooms.Join("typist", room)
	rooms.Join("peer", room)

	snap := model.UserSnapshot{ID: "u1", FirstName: "Ann"}
	e.Publish(TypingEvent(true, "conv1", "typist", snap))
	sender.waitFor(t, 1)

	if got := sender.conns(); len(got) != 1 || got[0] != "peer" {
		t.Fatalf("typing must not echo to the typist, got %v", got)
	}
}

func TestEngineUserTargetsAllDevices(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	presence.RecordConnect("u1", "tab1")
	presence.RecordConnect("u1", "tab2")
	presence.RecordConnect("u2", "other")

	n := &model.Notification{
		ID:        primitive.NewObjectID(),
		Recipient: mustOID(t, "u1"),
		Type:      model.NotifyMessage,
	}
	// recipient hex won't equal "u1"; target the real presence key instead
	ev := NotificationEvent(n)
	ev.Targets = []string{"u1"}
	e.Publish(ev)
	sender.waitFor(t, 2)

	if got := sender.conns(); len(got) != 2 || got[0] != "tab1" || got[1] != "tab2" {
		t.Fatalf("expected both of u1's devices, got %v", got)
	}
}

func TestEngineOfflineUserIsNoop(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	ev := &Event{Kind: KindNotificationNew, Targets: []string{"offline-user"}, TS: time.Now()}
	e.Publish(ev)

	time.Sleep(50 * time.Millisecond)
	if got := sender.conns(); len(got) != 0 {
		t.Fatalf("offline target must deliver nothing, got %v", got)
	}
}

func TestEngineGlobalExcludesOriginUser(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	presence.RecordConnect("u1", "self1")
	presence.RecordConnect("u1", "self2")
	presence.RecordConnect("u2", "peer")

	e.Publish(UserOfflineEvent("u1", time.Now().UTC()))
	sender.waitFor(t, 1)

	if got := sender.conns(); len(got) != 1 || got[0] != "peer" {
		t.Fatalf("presence broadcast must skip the origin user, got %v", got)
	}
}

// Events for one conversation must reach a subscriber in publish order
// even though delivery runs on a worker pool.
func TestEngineRoomOrderMatchesPublishOrder(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	rec := newRecordingSender()
	e := NewEngine(presence, rooms, rec, 4, 64)
	defer e.Close()

	convID := primitive.NewObjectID()
	from := primitive.NewObjectID()
	rooms.Join("c1", RoomName(convID.Hex()))

	const n = 20
	for i := 0; i < n; i++ {
		m := testMessage(convID, from)
		m.Content = fmt.Sprintf("m-%02d", i)
		e.Publish(NewMessageEvent(m))
	}
	rec.waitFor(t, n)

	frames := rec.payloads("c1")
	if len(frames) != n {
		t.Fatalf("expected %d frames, got %d", n, len(frames))
	}
	for i, raw := range frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		msg, _ := f.Data["message"].(map[string]any)
		want := fmt.Sprintf("m-%02d", i)
		if msg["content"] != want {
			t.Fatalf("frame %d out of order: want %q, got %q", i, want, msg["content"])
		}
	}
}

// blockingSender parks every delivery until the gate opens, simulating a
// stalled worker.
type blockingSender struct{ gate chan struct{} }

func (b *blockingSender) Send(string, []byte) error {
	<-b.gate
	return nil
}

func TestEnginePublishNeverBlocks(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	bs := &blockingSender{gate: make(chan struct{})}
	e := NewEngine(presence, rooms, bs, 1, 1)
	defer e.Close()

	convID := primitive.NewObjectID()
	from := primitive.NewObjectID()
	rooms.Join("c1", RoomName(convID.Hex()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8; i++ {
			e.Publish(NewMessageEvent(testMessage(convID, from)))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked on a saturated shard")
	}
	close(bs.gate)
}

func TestEngineUnknownKindDropped(t *testing.T) {
	presence := NewPresence()
	rooms := NewRoomTable()
	sender := newRecordingSender()
	e := NewEngine(presence, rooms, sender, 2, 16)
	defer e.Close()

	presence.RecordConnect("u1", "c1")
	e.Publish(&Event{Kind: Kind("bogus:event"), TS: time.Now()})

	time.Sleep(50 * time.Millisecond)
	if got := sender.conns(); len(got) != 0 {
		t.Fatalf("unknown kind must be dropped, got deliveries to %v", got)
	}
}

func mustOID(t *testing.T, seed string) primitive.ObjectID {
	t.Helper()
	var b [12]byte
	copy(b[:], seed)
	return primitive.ObjectID(b)
}
