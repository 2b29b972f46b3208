package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/catalog"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/config"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/database"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/feed"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/handlers"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/reward"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
	"github.com/go-chi/chi/v5"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	if cfg.SeedCatalog {
		cat, err := catalog.Default()
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		if err := cat.Seed(db); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
	}

	// Notifications: the feed always, Discord when a bot token is configured
	clock := domain.SystemClock()
	feedService := feed.NewService(db, clock)
	notifiers := notifier.Multi{feedService}
	if cfg.DiscordBotToken != "" {
		discordNotifier, err := notifier.NewDiscordNotifierFromToken(cfg.DiscordBotToken, cfg.DiscordNotificationsChannelID)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			notifiers = append(notifiers, discordNotifier)
		}
	}

	// Engines
	statsService := stats.NewService(db, clock, stats.Options{
		XPPerCheckin:     cfg.XPPerCheckin,
		PointsPerCheckin: cfg.PointsPerCheckin,
	})
	trailEngine := trail.NewEngine(db, clock)
	rewardEngine := reward.NewEngine(db, notifiers, clock, reward.Options{
		Window: cfg.RevealWindow(),
		Tick:   cfg.RevealTick(),
	})
	defer rewardEngine.Close()
	if err := rewardEngine.Resume(ctx); err != nil {
		log.Fatalf("Failed to resume reveal sessions: %v", err)
	}

	passService := pass.NewService(db, pass.Deps{
		Stats:    statsService,
		Trails:   trailEngine,
		Rewards:  rewardEngine,
		Feed:     feedService,
		Notifier: notifiers,
		Clock:    clock,
	}, pass.Options{TrailCompletionXP: cfg.TrailCompletionXP})

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	h := handlers.Handlers{
		Auth:         authHandler,
		Shops:        handlers.NewShopHandler(db, statsService),
		Checkins:     handlers.NewCheckinHandler(passService),
		Trails:       handlers.NewTrailHandler(trailEngine, passService),
		Rewards:      handlers.NewRewardHandler(rewardEngine, passService),
		Achievements: handlers.NewAchievementHandler(db, statsService),
		Feed:         handlers.NewFeedHandler(feedService),
		POS:          handlers.NewPOSHandler(passService),
	}

	// Initialize Router
	r := chi.NewRouter()
	corsOrigin := ""
	if cfg.EnableCORS {
		corsOrigin = cfg.FrontendURL
	}
	handlers.RegisterRoutes(r, h, corsOrigin)

	// Start Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
