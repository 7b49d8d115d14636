package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/alerts"
	"github.com/statuspulse/statuspulse/internal/notify"
)

const (
	defaultRecentHours = 24
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// IngestAlert accepts external alerts in any of the supported formats
// (Alertmanager batch, Grafana, generic), stores them and dispatches to the
// routed channels. Dispatch failures never propagate to the caller.
func (h *Handler) IngestAlert(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to read request body"})
		return
	}

	parsed, err := alerts.Parse(body, h.now())
	if err != nil {
		if errors.Is(err, alerts.ErrUnsupportedFormat) {
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unsupported alert format"})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := h.alertStore.Insert(ctx.Request.Context(), parsed.Alert); err != nil {
		log.Printf("alert: store insert failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to store alert"})
		return
	}

	h.hub.BroadcastAlert(parsed.Alert)

	// Deliver in the background; a slow channel must not hold the response.
	ev := notify.ExternalEvent(parsed.Alert, parsed.Channels)
	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for _, r := range h.notifier.DispatchExternal(dispatchCtx, ev) {
			if !r.Success {
				log.Printf("alert: delivery to %s (%s) failed: %s", r.Channel, r.Type, r.Error)
			}
		}
	}()

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Alert processed",
		"alertTitle": parsed.Alert.Title,
	})
}

// RecentAlerts serves the alert history for dashboard polling. Clients
// filter by a last-seen cursor, so ordering is stable newest-first.
func (h *Handler) RecentAlerts(ctx *gin.Context) {
	limit := defaultRecentLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(parsed, maxRecentLimit)
	}

	hours := defaultRecentHours
	if raw := ctx.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hours"})
			return
		}
		hours = parsed
	}

	since := h.now().Add(-time.Duration(hours) * time.Hour)
	if raw := ctx.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp, want RFC3339"})
			return
		}
		since = parsed
	}

	list, err := h.alertStore.ListSince(ctx.Request.Context(), since, limit)
	if err != nil {
		log.Printf("alert: list failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"alerts":      list,
		"count":       len(list),
		"periodHours": hours,
	})
}
