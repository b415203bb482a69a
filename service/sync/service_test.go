package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ChatSync/model"
	"ChatSync/store"
	"ChatSync/tools/errs"
)

type fakeConvs struct {
	byID map[string]*model.Conversation
	ids  []primitive.ObjectID
}

func (f *fakeConvs) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrConversationNotFound.WrapMsg(id)
	}
	return c, nil
}

func (f *fakeConvs) IDsForUser(_ context.Context, _ string) ([]primitive.ObjectID, error) {
	return f.ids, nil
}

// fakeMsgs replays the store's query contract against an in-memory slice:
// strictly-after cursor, sender exclusion, cap, ascending order.
type fakeMsgs struct {
	all []*model.Message
}

func (f *fakeMsgs) MissedSince(_ context.Context, convIDs []primitive.ObjectID, since time.Time, excludeSender string, limit int64) ([]*model.Message, error) {
	inScope := make(map[primitive.ObjectID]bool, len(convIDs))
	for _, id := range convIDs {
		inScope[id] = true
	}
	var out []*model.Message
	for _, m := range f.all {
		if !inScope[m.Conversation] || !m.CreatedAt.After(since) {
			continue
		}
		if excludeSender != "" && m.Sender.Hex() == excludeSender {
			continue
		}
		out = append(out, m)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMsgs) MissedForConversation(_ context.Context, convID primitive.ObjectID, since time.Time, limit int64) ([]*model.Message, error) {
	var out []*model.Message
	for _, m := range f.all {
		if m.Conversation != convID || !m.CreatedAt.After(since) {
			continue
		}
		out = append(out, m)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

type fakeNotifs struct {
	all []*model.Notification
}

func (f *fakeNotifs) MissedSince(_ context.Context, recipient string, since time.Time, limit int64) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range f.all {
		if n.Recipient.Hex() != recipient || !n.CreatedAt.After(since) {
			continue
		}
		out = append(out, n)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func msgAt(conv, sender primitive.ObjectID, at time.Time) *model.Message {
	return &model.Message{
		ID:           primitive.NewObjectID(),
		Conversation: conv,
		Sender:       sender,
		Content:      "m",
		CreatedAt:    at,
	}
}

func TestParseSince(t *testing.T) {
	_, err := ParseSince("")
	assert.True(t, errors.Is(err, errs.ErrCursorMissing))

	_, err = ParseSince("yesterday")
	assert.True(t, errors.Is(err, errs.ErrCursorInvalid))

	got, err := ParseSince("2026-08-29T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	got, err = ParseSince("2026-08-29T10:00:00.123456789Z")
	require.NoError(t, err)
	assert.Equal(t, 123456789, got.Nanosecond())
}

func TestMissedUpdatesExclusiveBoundaryAndSenderExclusion(t *testing.T) {
	me := primitive.NewObjectID()
	peer := primitive.NewObjectID()
	conv := primitive.NewObjectID()
	cursor := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	msgs := &fakeMsgs{all: []*model.Message{
		msgAt(conv, peer, cursor),                      // exactly at cursor: excluded
		msgAt(conv, peer, cursor.Add(time.Second)),     // after: included
		msgAt(conv, me, cursor.Add(2*time.Second)),     // mine: excluded
		msgAt(conv, peer, cursor.Add(3*time.Second)),   // after: included
	}}
	svc := NewService(&fakeConvs{ids: []primitive.ObjectID{conv}}, msgs, &fakeNotifs{})

	up, err := svc.MissedUpdates(context.Background(), me.Hex(), cursor)
	require.NoError(t, err)

	require.Len(t, up.Messages, 2)
	for _, m := range up.Messages {
		assert.True(t, m.CreatedAt.After(cursor))
		assert.NotEqual(t, me, m.Sender)
	}
	assert.Equal(t, 2, up.Counts.TotalMessages)
	assert.Len(t, up.MessagesByConversation[conv.Hex()], 2)
	assert.False(t, up.SyncedAt.IsZero())
}

func TestMissedUpdatesCaps(t *testing.T) {
	me := primitive.NewObjectID()
	peer := primitive.NewObjectID()
	conv := primitive.NewObjectID()
	cursor := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	msgs := &fakeMsgs{}
	for i := 0; i < store.MissedMessageCap+50; i++ {
		msgs.all = append(msgs.all, msgAt(conv, peer, cursor.Add(time.Duration(i+1)*time.Millisecond)))
	}
	notifs := &fakeNotifs{}
	for i := 0; i < store.MissedNotificationCap+25; i++ {
		notifs.all = append(notifs.all, &model.Notification{
			ID:        primitive.NewObjectID(),
			Recipient: me,
			Type:      model.NotifyMessage,
			CreatedAt: cursor.Add(time.Duration(i+1) * time.Millisecond),
		})
	}
	svc := NewService(&fakeConvs{ids: []primitive.ObjectID{conv}}, msgs, notifs)

	up, err := svc.MissedUpdates(context.Background(), me.Hex(), cursor)
	require.NoError(t, err)
	assert.Len(t, up.Messages, int(store.MissedMessageCap))
	assert.Len(t, up.Notifications, int(store.MissedNotificationCap))
}

// Two catch-up reads over the same cursor and unchanged data must encode
// to identical bytes, so a client can retry the request safely.
func TestMissedUpdatesDeterministic(t *testing.T) {
	me := primitive.NewObjectID()
	peer := primitive.NewObjectID()
	convA := primitive.NewObjectID()
	convB := primitive.NewObjectID()
	cursor := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	msgs := &fakeMsgs{all: []*model.Message{
		msgAt(convA, peer, cursor.Add(time.Second)),
		msgAt(convB, peer, cursor.Add(2*time.Second)),
		msgAt(convA, peer, cursor.Add(2*time.Second)), // timestamp tie
		msgAt(convB, peer, cursor.Add(3*time.Second)),
	}}
	notifs := &fakeNotifs{all: []*model.Notification{
		{ID: primitive.NewObjectID(), Recipient: me, CreatedAt: cursor.Add(time.Second)},
		{ID: primitive.NewObjectID(), Recipient: me, CreatedAt: cursor.Add(2 * time.Second)},
	}}
	svc := NewService(&fakeConvs{ids: []primitive.ObjectID{convA, convB}}, msgs, notifs)

	first, err := svc.MissedUpdates(context.Background(), me.Hex(), cursor)
	require.NoError(t, err)
	second, err := svc.MissedUpdates(context.Background(), me.Hex(), cursor)
	require.NoError(t, err)

	// SyncedAt is the only field allowed to differ between calls
	first.SyncedAt = time.Time{}
	second.SyncedAt = time.Time{}

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestMissedUpdatesCountsUnread(t *testing.T) {
	me := primitive.NewObjectID()
	cursor := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	notifs := &fakeNotifs{all: []*model.Notification{
		{ID: primitive.NewObjectID(), Recipient: me, Read: false, CreatedAt: cursor.Add(time.Second)},
		{ID: primitive.NewObjectID(), Recipient: me, Read: true, CreatedAt: cursor.Add(2 * time.Second)},
		{ID: primitive.NewObjectID(), Recipient: me, Read: false, CreatedAt: cursor.Add(3 * time.Second)},
	}}
	svc := NewService(&fakeConvs{}, &fakeMsgs{}, notifs)

	up, err := svc.MissedUpdates(context.Background(), me.Hex(), cursor)
	require.NoError(t, err)
	assert.Equal(t, 3, up.Counts.TotalNotifications)
	assert.Equal(t, 2, up.Counts.UnreadNotifications)
	assert.NotNil(t, up.Messages, "empty result must marshal as [], not null")
}

func TestMissedForConversationAccessControl(t *testing.T) {
	me := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	conv := &model.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{me},
	}
	convs := &fakeConvs{byID: map[string]*model.Conversation{conv.ID.Hex(): conv}}
	svc := NewService(convs, &fakeMsgs{}, &fakeNotifs{})
	cursor := time.Now().Add(-time.Hour)

	_, err := svc.MissedForConversation(context.Background(), stranger.Hex(), conv.ID.Hex(), cursor)
	assert.True(t, errors.Is(err, errs.ErrNotParticipant), "non-participant must be rejected")

	_, err = svc.MissedForConversation(context.Background(), me.Hex(), "missing", cursor)
	assert.True(t, errors.Is(err, errs.ErrConversationNotFound))

	got, err := svc.MissedForConversation(context.Background(), me.Hex(), conv.ID.Hex(), cursor)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
