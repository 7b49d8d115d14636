package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/auth"
	"github.com/statuspulse/statuspulse/internal/middleware"
	"github.com/statuspulse/statuspulse/internal/types"
)

// HeartbeatRequest covers both submission shapes: a single serviceId, or a
// services list whose entries are either bare ID strings or
// {serviceId, token} objects.
type HeartbeatRequest struct {
	ServiceID string            `json:"serviceId"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
	Services  []json.RawMessage `json:"services"`
}

type batchServiceEntry struct {
	ServiceID string `json:"serviceId"`
	Token     string `json:"token"`
}

type HeartbeatResult struct {
	ServiceID string `json:"serviceId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Heartbeat ingests liveness signals. Single submissions answer 200/401;
// batches answer 200 when every entry succeeds, 207 on partial success and
// 400 when malformed or every entry fails.
func (h *Handler) Heartbeat(ctx *gin.Context) {
	var req HeartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON payload"})
		return
	}

	headerToken, _ := middleware.BearerToken(ctx)

	if req.ServiceID != "" {
		h.heartbeatSingle(ctx, req, headerToken)
		return
	}
	if len(req.Services) > 0 {
		h.heartbeatBatch(ctx, req.Services, headerToken)
		return
	}

	ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Request must contain serviceId or services"})
}

func (h *Handler) heartbeatSingle(ctx *gin.Context, req HeartbeatRequest, headerToken string) {
	verdict := h.resolver.Resolve([]auth.Entry{{ServiceID: req.ServiceID}}, headerToken)[0]

	if !verdict.Authorized {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   verdict.Err.Error(),
		})
		return
	}

	if err := h.recordHeartbeat(ctx, req.ServiceID, req.Status, req.Metadata); err != nil {
		log.Printf("heartbeat: store write for %s failed: %v", req.ServiceID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record heartbeat"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Heartbeat recorded",
		"serviceId": req.ServiceID,
	})
}

func (h *Handler) heartbeatBatch(ctx *gin.Context, rawServices []json.RawMessage, headerToken string) {
	entries, ok := parseBatchEntries(rawServices)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid services entry"})
		return
	}

	verdicts := h.resolver.Resolve(entries, headerToken)

	results := make([]HeartbeatResult, 0, len(verdicts))
	succeeded := 0
	for _, v := range verdicts {
		result := HeartbeatResult{ServiceID: v.ServiceID}
		if !v.Authorized {
			result.Error = v.Err.Error()
			results = append(results, result)
			continue
		}
		if err := h.recordHeartbeat(ctx, v.ServiceID, "", nil); err != nil {
			log.Printf("heartbeat: store write for %s failed: %v", v.ServiceID, err)
			result.Error = "store unavailable"
			results = append(results, result)
			continue
		}
		result.Success = true
		succeeded++
		results = append(results, result)
	}

	switch {
	case succeeded == len(results):
		ctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "All heartbeats recorded",
			"results": results,
		})
	case succeeded == 0:
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "All heartbeats failed",
			"results": results,
		})
	default:
		ctx.JSON(http.StatusMultiStatus, gin.H{
			"success": false,
			"message": "Some heartbeats failed",
			"results": results,
		})
	}
}

// parseBatchEntries accepts entries that are either bare serviceId strings
// or {serviceId, token} objects, in any mix.
func parseBatchEntries(rawServices []json.RawMessage) ([]auth.Entry, bool) {
	entries := make([]auth.Entry, 0, len(rawServices))
	for _, raw := range rawServices {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if id == "" {
				return nil, false
			}
			entries = append(entries, auth.Entry{ServiceID: id})
			continue
		}

		var entry batchServiceEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.ServiceID == "" {
			return nil, false
		}
		entries = append(entries, auth.Entry{ServiceID: entry.ServiceID, Token: entry.Token})
	}
	return entries, true
}

func (h *Handler) recordHeartbeat(ctx *gin.Context, serviceID, statusHint string, metadata map[string]string) error {
	// Only the two meaningful hints are stored; anything else is noise.
	if statusHint != types.StatusUp && statusHint != types.StatusDegraded {
		statusHint = ""
	}
	return h.heartbeats.Put(ctx.Request.Context(), types.HeartbeatRecord{
		ServiceID:  serviceID,
		LastSeen:   h.now(),
		StatusHint: statusHint,
		Metadata:   metadata,
	})
}
