package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/types"
)

type TestNotificationRequest struct {
	ChannelType string `json:"channelType" binding:"required"`
	EventType   string `json:"eventType"`
}

// TestNotification fires one synthetic event at every enabled channel of the
// requested type so operators can verify channel credentials end to end.
func (h *Handler) TestNotification(ctx *gin.Context) {
	var req TestNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	eventType := req.EventType
	switch eventType {
	case "":
		eventType = types.EventDown
	case types.EventDown, types.EventUp, types.EventDegraded:
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "eventType must be down, up or degraded"})
		return
	}

	results := h.notifier.TestDispatch(ctx.Request.Context(), req.ChannelType, eventType)
	if len(results) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No enabled channel of type " + req.ChannelType,
		})
		return
	}

	allOK := true
	for _, r := range results {
		if !r.Success {
			allOK = false
		}
	}

	message := "Test notification sent"
	if !allOK {
		message = "Some channels failed"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": allOK,
		"message": message,
		"results": results,
	})
}
