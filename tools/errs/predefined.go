package errs

// Error codes grouped by hundreds: 10xx auth, 11xx validation,
// 12xx authorization, 13xx not-found, 14xx delivery, 15xx server.
var (
	ErrTokenMissing = NewCodeError(1001, "token missing")
	ErrTokenInvalid = NewCodeError(1002, "token invalid")
	ErrTokenExpired = NewCodeError(1003, "token expired")
	ErrUserNotFound = NewCodeError(1004, "user not found")

	ErrPayloadInvalid = NewCodeError(1101, "payload invalid")
	ErrCursorMissing  = NewCodeError(1102, "sync cursor missing")
	ErrCursorInvalid  = NewCodeError(1103, "sync cursor invalid")

	ErrNotParticipant = NewCodeError(1201, "not a conversation participant")

	ErrConversationNotFound = NewCodeError(1301, "conversation not found")
	ErrMessageNotFound      = NewCodeError(1302, "message not found")

	// Lookup raced with a disconnect; fan-out drops the target silently.
	ErrDeliveryDropped = NewCodeError(1401, "delivery dropped")

	ErrInternal = NewCodeError(1500, "internal error")
)
