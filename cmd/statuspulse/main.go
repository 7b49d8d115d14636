package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/statuspulse/statuspulse/db"
	"github.com/statuspulse/statuspulse/internal/auth"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/handlers"
	"github.com/statuspulse/statuspulse/internal/notify"
	"github.com/statuspulse/statuspulse/internal/router"
	"github.com/statuspulse/statuspulse/internal/scheduler"
	"github.com/statuspulse/statuspulse/internal/status"
	"github.com/statuspulse/statuspulse/internal/store"
	"github.com/statuspulse/statuspulse/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	secrets, err := config.LoadEnvSecrets()
	if err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	heartbeats := store.NewHeartbeatStore(db.DB)
	summaries := store.NewSummaryStore(db.DB)
	alertStore := store.NewAlertStore(db.DB, cfg.Settings.MaxAlerts, cfg.Settings.MaxAgeDays)
	notifyState := store.NewNotifyStateStore(db.DB)

	hub := ws.NewHub()
	notifier := notify.NewManager(cfg, secrets, notifyState, alertStore, hub)
	evaluator := status.NewEvaluator(cfg, heartbeats, summaries, notifier)

	sched := scheduler.New(evaluator, time.Duration(cfg.Settings.EvaluateEverySeconds)*time.Second)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	resolver := auth.NewResolver(cfg, secrets)
	h := handlers.New(cfg, secrets, resolver, heartbeats, summaries, alertStore, notifier, hub)

	r := router.NewRouter(h, hub, secrets)

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		sched.Stop()
		os.Exit(0)
	}()

	var port string
	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
