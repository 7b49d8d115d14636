package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/handlers"
	"github.com/statuspulse/statuspulse/internal/middleware"
	"github.com/statuspulse/statuspulse/internal/types"
	"github.com/statuspulse/statuspulse/internal/ws"
)

func NewRouter(h *handlers.Handler, hub *ws.Hub, secrets config.SecretSource) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/status", h.Status)
		api.GET("/ws", hub.Handle)

		api.POST("/heartbeat", h.Heartbeat)
		api.POST("/alert", middleware.RequireAlertKey(secrets), h.IngestAlert)
		api.GET("/alerts/recent", h.RecentAlerts)
		api.POST("/test-notification", h.TestNotification)
	}

	return r
}
