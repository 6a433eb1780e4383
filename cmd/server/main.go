package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/booking"
	"github.com/wayfinder/campaign-engine/internal/capacity"
	"github.com/wayfinder/campaign-engine/internal/metrics"
	"github.com/wayfinder/campaign-engine/internal/store"
)

func main() {
	// Local development reads configuration from a .env file; in
	// deployment the environment is already populated.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Area limits ---
	maxPerCampaign := envDecimal("MAX_AREA_PER_CAMPAIGN", decimal.NewFromInt(100))
	maxPerDistrict := envDecimal("MAX_AREA_PER_DISTRICT", decimal.NewFromInt(500))
	prefixLen := envInt("DISTRICT_PREFIX_LEN", 4) // 4-digit mesh prefix ≈ one primary mesh district
	limiter := capacity.NewAreaLimiter(maxPerCampaign, maxPerDistrict, prefixLen)

	// --- WebSocket hub ---
	wsHub := booking.NewWSHub()
	go wsHub.Run()

	// --- Booking service ---
	bookingSvc := booking.NewService(st, limiter, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"campaign-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time price updates.
		r.Get("/ws", wsHub.HandleWS)

		// Campaign management.
		r.Get("/campaigns", bookingSvc.ListCampaigns)
		r.Post("/campaigns", bookingSvc.CreateCampaign)
		r.Get("/campaigns/{campaignID}", bookingSvc.GetCampaign)
		r.Get("/campaigns/{campaignID}/price", bookingSvc.GetQuote)
		r.Get("/campaigns/{campaignID}/bookings", bookingSvc.ListCampaignBookings)

		// Booking execution.
		r.Post("/bookings", bookingSvc.CreateBooking)
		r.Post("/bookings/{bookingID}/cancel", bookingSvc.CancelBooking)
		r.Get("/bookings/{bookingID}/invoice", bookingSvc.GetInvoice)

		// Farmer queries.
		r.Get("/farmers/{farmerID}/bookings", bookingSvc.GetFarmerSummary)

		// Route planning for dispatch.
		r.Post("/routes/plan", bookingSvc.PlanRoute)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("campaign-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down campaign-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("campaign-engine stopped")
}

func envDecimal(name string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		slog.Warn("invalid decimal in environment, using default", "name", name, "value", v)
		return def
	}
	return d
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "name", name, "value", v)
		return def
	}
	return n
}
