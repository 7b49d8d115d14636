package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/types"
)

type ServiceStatus struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Group          string                     `json:"group,omitempty"`
	Status         string                     `json:"status"`
	LastSeen       *time.Time                 `json:"lastSeen,omitempty"`
	LastTransition *time.Time                 `json:"lastTransition,omitempty"`
	Uptime         map[string]types.DayBucket `json:"uptime,omitempty"`
}

// Status serves the dashboard polling payload: every enabled service with
// its current status and daily uptime buckets.
func (h *Handler) Status(ctx *gin.Context) {
	summaries, err := h.summaries.All(ctx.Request.Context())
	if err != nil {
		log.Printf("status: read summaries failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read status"})
		return
	}

	services := make([]ServiceStatus, 0, len(h.cfg.Services))
	down := 0
	for _, svc := range h.cfg.Services {
		if !svc.IsEnabled() {
			continue
		}

		entry := ServiceStatus{
			ID:     svc.ID,
			Name:   svc.DisplayName(),
			Group:  svc.Group,
			Status: types.StatusUnknown,
		}
		if sum, ok := summaries[svc.ID]; ok {
			entry.Status = sum.Status
			entry.LastSeen = sum.LastSeen
			entry.LastTransition = sum.LastTransition
			entry.Uptime = sum.Buckets
		}
		if entry.Status == types.StatusDown {
			down++
		}
		services = append(services, entry)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"services":  services,
		"count":     len(services),
		"down":      down,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
