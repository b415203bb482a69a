package chat

import (
	"context"
	"errors"
	"time"

	"ChatSync/logger"
	"ChatSync/tools/decode"
	"ChatSync/tools/errs"
)

// syncFallbackWindow backs the sync:request convenience path when the
// client omits lastSyncDate. The REST sync endpoints never default.
const syncFallbackWindow = 24 * time.Hour

const handlerTimeout = 10 * time.Second

type joinHandler struct{ g *Gateway }

func (joinHandler) Event() string { return EvConversationJoin }

func (h joinHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[JoinPayload](f.Data)
	if err != nil {
		return err
	}
	if p.ConversationID == "" {
		return errs.ErrPayloadInvalid.WithDetail("conversationId required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	conv, err := h.g.convs.FindByID(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !conv.IsParticipant(c.UserID) {
		return errs.ErrNotParticipant.Wrap()
	}

	h.g.rooms.Join(c.ConnID, RoomName(p.ConversationID))
	c.enqueue(MarshalFrame(EvConversationJoined, JoinPayload{ConversationID: p.ConversationID}))
	logger.Debugf("[gateway] user=%s joined room=%s conn=%s", c.UserID, p.ConversationID, c.ConnID)
	return nil
}

type leaveHandler struct{ g *Gateway }

func (leaveHandler) Event() string { return EvConversationLeave }

func (h leaveHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[JoinPayload](f.Data)
	if err != nil {
		return err
	}
	h.g.rooms.Leave(c.ConnID, RoomName(p.ConversationID))
	return nil
}

type viewHandler struct{ g *Gateway }

func (viewHandler) Event() string { return EvConversationView }

func (h viewHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[ViewPayload](f.Data)
	if err != nil {
		return err
	}
	if p.ConversationID == "" {
		return errs.ErrPayloadInvalid.WithDetail("conversationId required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := h.g.views.UpdateView(ctx, c.UserID, p.ConversationID, p.MessageID); err != nil {
		return err
	}

	h.g.engine.Publish(ConversationViewedEvent(p.ConversationID, c.UserID, p.MessageID, c.ConnID))
	return nil
}

// sendHandler only acknowledges receipt: the durable message row is
// created through the REST API, which then feeds the publish hook.
type sendHandler struct{}

func (sendHandler) Event() string { return EvMessageSend }

func (sendHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[SendPayload](f.Data)
	if err != nil {
		return err
	}
	c.enqueue(MarshalFrame(EvMessageSending, SendPayload{
		ConversationID: p.ConversationID,
		TempID:         p.TempID,
	}))
	return nil
}

type typingHandler struct {
	g     *Gateway
	start bool
}

func (h typingHandler) Event() string {
	if h.start {
		return EvTypingStart
	}
	return EvTypingStop
}

func (h typingHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[TypingPayload](f.Data)
	if err != nil {
		return err
	}
	if p.ConversationID == "" {
		return errs.ErrPayloadInvalid.WithDetail("conversationId required")
	}
	// relayed to the room minus the typist's own connection
	h.g.engine.Publish(TypingEvent(h.start, p.ConversationID, c.ConnID, c.User.Snapshot()))
	return nil
}

type receiptHandler struct {
	g    *Gateway
	kind Kind
}

func (h receiptHandler) Event() string { return string(h.kind) }

func (h receiptHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[ReceiptPayload](f.Data)
	if err != nil {
		return err
	}
	if p.MessageID == "" || p.ConversationID == "" {
		return errs.ErrPayloadInvalid.WithDetail("messageId and conversationId required")
	}
	h.g.engine.Publish(ReceiptEvent(h.kind, p.ConversationID, p.MessageID, c.UserID, c.ConnID))
	return nil
}

type syncHandler struct{ g *Gateway }

func (syncHandler) Event() string { return EvSyncRequest }

func (h syncHandler) Handle(c *Client, f *Frame) error {
	p, err := decode.Map[SyncRequestPayload](f.Data)
	if err != nil {
		p = &SyncRequestPayload{}
	}

	since := time.Now().Add(-syncFallbackWindow).UTC()
	if p.LastSyncDate != "" {
		parsed, perr := time.Parse(time.RFC3339Nano, p.LastSyncDate)
		if perr != nil {
			c.enqueue(MarshalFrame(EvSyncError, errs.ErrCursorInvalid.WithDetail(p.LastSyncDate)))
			return nil
		}
		since = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	updates, err := h.g.catchup.MissedUpdates(ctx, c.UserID, since)
	if err != nil {
		logger.Errorf("[gateway] sync failed user=%s err=%v", c.UserID, err)
		c.enqueue(MarshalFrame(EvSyncError, errs.AsCodeError(err)))
		return nil
	}

	c.enqueue(MarshalFrame(EvSyncResponse, map[string]any{
		"messages":      updates.Messages,
		"notifications": updates.Notifications,
		"syncDate":      updates.SyncedAt,
	}))
	logger.Debugf("[gateway] sync served user=%s since=%s", c.UserID, since.Format(time.RFC3339))
	return nil
}

// frameError converts a handler failure into an error frame for the
// client; the connection stays open.
func frameError(c *Client, err error) {
	var ce *errs.CodeError
	if !errors.As(err, &ce) {
		ce = errs.ErrInternal
	}
	c.enqueue(MarshalFrame(EvError, ce))
}
