package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ChatSync/logger"
	"ChatSync/middleware"
	"ChatSync/tools/errs"
)

// HTTPHandler exposes the catch-up reads over REST. Both routes require
// the auth middleware; the userID in the token is the only identity used.
type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) Register(r gin.IRoutes) {
	r.GET("/api/sync/updates", h.Updates)
	r.GET("/api/sync/conversations/:conversationId/messages", h.ConversationMessages)
}

// Updates serves GET /api/sync/updates?since=<RFC3339>.
func (h *HTTPHandler) Updates(c *gin.Context) {
	userID := middleware.UserID(c)
	since, err := ParseSince(c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.AsCodeError(err))
		return
	}

	updates, err := h.svc.MissedUpdates(c.Request.Context(), userID, since)
	if err != nil {
		logger.Errorf("[sync] updates failed user=%s err=%v", userID, err)
		c.JSON(statusFor(err), errs.AsCodeError(err))
		return
	}
	c.JSON(http.StatusOK, updates)
}

// ConversationMessages serves
// GET /api/sync/conversations/:conversationId/messages?since=<RFC3339>.
func (h *HTTPHandler) ConversationMessages(c *gin.Context) {
	userID := middleware.UserID(c)
	conversationID := c.Param("conversationId")
	since, err := ParseSince(c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.AsCodeError(err))
		return
	}

	messages, err := h.svc.MissedForConversation(c.Request.Context(), userID, conversationID, since)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			logger.Errorf("[sync] conversation sync failed user=%s conv=%s err=%v", userID, conversationID, err)
		}
		c.JSON(statusFor(err), errs.AsCodeError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversationId": conversationID,
		"messages":       messages,
		"count":          len(messages),
	})
}

// statusFor keeps "not yours" and "does not exist" distinguishable.
func statusFor(err error) int {
	ce := errs.AsCodeError(err)
	switch ce.Code {
	case errs.ErrCursorMissing.Code, errs.ErrCursorInvalid.Code, errs.ErrPayloadInvalid.Code:
		return http.StatusBadRequest
	case errs.ErrNotParticipant.Code:
		return http.StatusForbidden
	case errs.ErrConversationNotFound.Code, errs.ErrMessageNotFound.Code, errs.ErrUserNotFound.Code:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
