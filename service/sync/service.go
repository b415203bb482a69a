// Package sync implements the catch-up side of the delivery contract: the
// live push is best-effort, this pull is the correctness backstop. Both
// reads are deterministic so a client can retry them safely.
package sync

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ChatSync/model"
	"ChatSync/store"
	"ChatSync/tools/errs"
)

type ConversationSource interface {
	FindByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	IDsForUser(ctx context.Context, userID string) ([]primitive.ObjectID, error)
}

type MessageSource interface {
	MissedSince(ctx context.Context, conversationIDs []primitive.ObjectID, since time.Time, excludeSender string, limit int64) ([]*model.Message, error)
	MissedForConversation(ctx context.Context, conversationID primitive.ObjectID, since time.Time, limit int64) ([]*model.Message, error)
}

type NotificationSource interface {
	MissedSince(ctx context.Context, recipient string, since time.Time, limit int64) ([]*model.Notification, error)
}

type Counts struct {
	TotalMessages       int `json:"totalMessages"`
	TotalNotifications  int `json:"totalNotifications"`
	UnreadNotifications int `json:"unreadNotifications"`
}

// Updates is the full-account catch-up result. MessagesByConversation is
// a convenience regrouping of Messages, not extra data.
type Updates struct {
	Messages               []*model.Message            `json:"messages"`
	MessagesByConversation map[string][]*model.Message `json:"messagesByConversation"`
	Notifications          []*model.Notification       `json:"notifications"`
	Counts                 Counts                      `json:"counts"`
	SyncedAt               time.Time                   `json:"syncedAt"`
}

type Service struct {
	convs  ConversationSource
	msgs   MessageSource
	notifs NotificationSource
}

func NewService(convs ConversationSource, msgs MessageSource, notifs NotificationSource) *Service {
	return &Service{convs: convs, msgs: msgs, notifs: notifs}
}

// ParseSince validates the client-held cursor. It is required and must be
// RFC3339; the server never silently substitutes a default.
func ParseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errs.ErrCursorMissing.Wrap()
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, raw); err2 == nil {
			return t2, nil
		}
		return time.Time{}, errs.ErrCursorInvalid.WrapMsg(raw)
	}
	return t, nil
}

// MissedUpdates returns everything the user missed strictly after since:
// messages across all their conversations (their own excluded, capped at
// 500) and their notifications (capped at 200), both oldest first.
func (s *Service) MissedUpdates(ctx context.Context, userID string, since time.Time) (*Updates, error) {
	convIDs, err := s.convs.IDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.msgs.MissedSince(ctx, convIDs, since, userID, store.MissedMessageCap)
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifs.MissedSince(ctx, userID, since, store.MissedNotificationCap)
	if err != nil {
		return nil, err
	}

	byConv := make(map[string][]*model.Message)
	for _, m := range messages {
		key := m.Conversation.Hex()
		byConv[key] = append(byConv[key], m)
	}

	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}

	if messages == nil {
		messages = []*model.Message{}
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}

	return &Updates{
		Messages:               messages,
		MessagesByConversation: byConv,
		Notifications:          notifications,
		Counts: Counts{
			TotalMessages:       len(messages),
			TotalNotifications:  len(notifications),
			UnreadNotifications: unread,
		},
		SyncedAt: time.Now().UTC(),
	}, nil
}

// MissedForConversation is the single-conversation variant. The caller
// must be a durable participant; "no such conversation" and "not yours"
// stay distinguishable for the HTTP layer.
func (s *Service) MissedForConversation(ctx context.Context, userID, conversationID string, since time.Time) ([]*model.Message, error) {
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, errs.ErrNotParticipant.Wrap()
	}
	messages, err := s.msgs.MissedForConversation(ctx, conv.ID, since, store.MissedMessageCap)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*model.Message{}
	}
	return messages, nil
}
