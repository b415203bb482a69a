package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ChatSync/logger"
	"ChatSync/tools/errs"
)

// HandlePublish is the internal ingestion hook the REST message service
// calls after a durable write commits: POST body is one Event. It is
// meant to sit behind the auth middleware on an internal route group.
func (g *Gateway) HandlePublish(c *gin.Context) {
	var ev Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrPayloadInvalid.WithDetail(err.Error()))
		return
	}
	if DeliveryOf(ev.Kind) == DeliveryUnknown {
		c.JSON(http.StatusBadRequest, errs.ErrPayloadInvalid.WithDetail("unknown event kind "+string(ev.Kind)))
		return
	}

	g.engine.Publish(&ev)
	logger.Debugf("[gateway] publish accepted kind=%s conv=%s", ev.Kind, ev.ConversationID)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
