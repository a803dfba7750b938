package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hive-corporation/iocscan/internal/adapter/eventbus"
	"github.com/hive-corporation/iocscan/internal/adapter/handler"
	"github.com/hive-corporation/iocscan/internal/adapter/notifier"
	"github.com/hive-corporation/iocscan/internal/adapter/repository"
	"github.com/hive-corporation/iocscan/internal/adapter/risk"
	"github.com/hive-corporation/iocscan/internal/core/ports"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	// Database connection (optional - scans work without persistence)
	var repo ports.IOCRepository
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbPool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer dbPool.Close()
		repo = repository.NewPostgresRepository(dbPool)
		log.Println("✅ Scan persistence enabled")
	} else {
		log.Println("⚠️  Scan persistence disabled (no DATABASE_URL)")
	}

	// Slack notifier (optional - only if token configured)
	var slackNotifier *notifier.SlackNotifier
	if slackToken := os.Getenv("SLACK_BOT_TOKEN"); slackToken != "" {
		slackNotifier = notifier.NewSlackNotifier(
			slackToken,
			getEnv("SLACK_CHANNEL_SECURITY", "#security-alerts"),
			getEnv("SLACK_MENTION_TEAM", "@security-team"),
		)
		log.Println("✅ Slack notifier enabled")
	} else {
		log.Println("⚠️  Slack notifier disabled (no SLACK_BOT_TOKEN)")
	}

	// Event bus (optional - only if NATS configured)
	var publisher *eventbus.Publisher
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		p, err := eventbus.NewPublisher(natsURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Println("✅ Event bus publishing enabled")
	} else {
		log.Println("⚠️  Event bus disabled (no NATS_URL)")
	}

	// Initialize risk metrics
	risk.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Risk analyzer (optional - only if enabled and API key configured)
	riskAnalyzer := risk.NewAnalyzer()
	if riskAnalyzer.IsEnabled() {
		log.Println("✅ Risk analysis enabled")
	} else {
		log.Println("⚠️  Risk analysis disabled (set RISK_ANALYSIS_ENABLED=true and RISK_API_KEY)")
	}

	// HTTP router
	router := mux.NewRouter()

	// REST handler
	restHandler := handler.NewRestHandler(repo, riskAnalyzer, publisher, slackNotifier)

	// Health check
	router.HandleFunc("/api/v1/health", restHandler.Health).Methods("GET")

	// Scan endpoints
	router.HandleFunc("/api/v1/scan", restHandler.Scan).Methods("POST")
	router.HandleFunc("/api/v1/validate", restHandler.Validate).Methods("GET")
	router.HandleFunc("/api/v1/export", restHandler.Export).Methods("POST")

	// Persisted-record lookups
	router.HandleFunc("/api/v1/iocs/check", restHandler.CheckIOC).Methods("GET")
	router.HandleFunc("/api/v1/iocs/recent", restHandler.RecentIOCs).Methods("GET")

	// Metrics endpoint (requires authentication)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Middleware
	router.Use(loggingMiddleware)
	router.Use(authMiddleware)

	// HTTP server
	port := getEnv("REST_API_PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("🚀 IOC scanner REST API listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("→ %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		log.Printf("← %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health check
		if r.URL.Path == "/api/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		// Verify API token for all other endpoints (including /metrics)
		token := r.Header.Get("Authorization")
		expectedToken := os.Getenv("REST_API_AUTH_TOKEN")

		// If no token configured, allow all requests (development mode)
		if expectedToken == "" {
			log.Println("⚠️  Warning: REST_API_AUTH_TOKEN not set - auth disabled")
			next.ServeHTTP(w, r)
			return
		}

		// Validate Bearer token
		if token != "Bearer "+expectedToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
