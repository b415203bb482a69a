package chat

import (
	"encoding/json"

	"ChatSync/tools/errs"
)

// Frame is the wire envelope in both directions: an event name plus a
// kind-specific data object.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Inbound event names the dispatcher routes on.
const (
	EvConversationJoin  = "conversation:join"
	EvConversationLeave = "conversation:leave"
	EvConversationView  = "conversation:view"
	EvTypingStart       = "typing:start"
	EvTypingStop        = "typing:stop"
	EvMessageSend       = "message:send"
	EvMessageDelivered  = "message:delivered"
	EvMessageRead       = "message:read"
	EvSyncRequest       = "sync:request"
)

// Outbound-only event names without a Kind of their own.
const (
	EvConversationJoined = "conversation:joined"
	EvMessageSending     = "message:sending"
	EvSyncResponse       = "sync:response"
	EvSyncError          = "sync:error"
	EvError              = "error"
)

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.ErrPayloadInvalid.WrapMsg(err.Error())
	}
	if f.Event == "" {
		return nil, errs.ErrPayloadInvalid.WithDetail("missing event")
	}
	return &f, nil
}

// MarshalFrame encodes an outbound frame. Marshal failures are programmer
// errors (payloads are our own structs) and surface as nil payloads the
// send path drops.
func MarshalFrame(event string, data any) []byte {
	b, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}

// ---- inbound payload shapes ----

type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

type ViewPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// SendPayload acknowledges an optimistic client send; the message row
// itself is created through the REST API.
type SendPayload struct {
	ConversationID string `json:"conversationId"`
	TempID         string `json:"tempId"`
}

type ReceiptPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type SyncRequestPayload struct {
	LastSyncDate string `json:"lastSyncDate"`
}
