package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"runner-service/internal/auth"
	"runner-service/internal/companies"
	"runner-service/internal/config"
	"runner-service/internal/feed"
	"runner-service/internal/home"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
	"runner-service/internal/metrics"
	"runner-service/internal/ratelimit"
	"runner-service/internal/rewards"
	"runner-service/internal/runs"
	"runner-service/internal/sessions"
	"runner-service/internal/users"
	"runner-service/migrations"
	"runner-service/pkg/db"
	"runner-service/pkg/jwt"
	"runner-service/pkg/kafka"
	"runner-service/pkg/objectstore"
	rredis "runner-service/pkg/redis"
)

func main() {
	// ── 1. Config & logger ──
	cfg, err := config.Load(context.Background())
	if err != nil {
		logging.New("error").Error(context.Background(), "config", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	if err := run(ctx, cancel, cfg, log); err != nil {
		log.Error(ctx, "runner-service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, log logging.Logger) error {
	defer cancel()

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, log.With("module", "db"))
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		return err
	}

	// ── 3. Sessions (+ optional Redis cache) ──
	sessOpts := []sessions.Option{sessions.WithTTL(cfg.Auth.SessionTTL)}
	if cfg.Redis.Enabled {
		redisClient, err := rredis.NewClient(ctx, cfg.Redis.Addr, log.With("module", "redis"))
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sessOpts = append(sessOpts, sessions.WithCache(sessions.NewRedisCache(redisClient)))
	}
	sessionSvc := sessions.NewService(database.Pool, log.With("module", "sessions"), sessOpts...)

	// ── 4. Kafka ──
	var kafkaClient *kafka.Client
	if cfg.Kafka.Enabled {
		kafkaClient = kafka.NewClient(cfg.Kafka.Brokers, log.With("module", "kafka"))
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopics(ctx, kafka.Topics...); err != nil {
			return err
		}
	}

	// ── 5. Services ──
	userSvc := users.NewService(database.Pool, database, sessionSvc,
		users.NewLogMailer(log.With("module", "mailer")), log.With("module", "users"),
		users.WithOTPTTL(cfg.Auth.OTPTTL),
		users.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	runSvc := runs.NewService(database.Pool, log.With("module", "runs"))

	rewardOpts := []rewards.Option{}
	if kafkaClient != nil {
		rewardOpts = append(rewardOpts, rewards.WithPublisher(kafkaClient))
	}
	rewardSvc := rewards.NewService(database.Pool, database, userSvc, runSvc, log.With("module", "rewards"), rewardOpts...)

	companyOpts := []companies.Option{}
	if cfg.S3.Enabled {
		pictures, err := objectstore.NewPresigner(ctx, objectstore.Config{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return err
		}
		companyOpts = append(companyOpts, companies.WithPictures(pictures))
	}
	companySvc := companies.NewService(database.Pool, userSvc, log.With("module", "companies"), companyOpts...)

	// ── 6. Live feed ──
	var feedHandler *feed.Handler
	if cfg.Feed.TicketSecret != "" {
		if err := jwt.Init(cfg.Feed.TicketSecret); err != nil {
			return err
		}
		hub := feed.NewHub(log.With("module", "feed"))
		feedHandler = feed.NewHandler(hub, userSvc, cfg.Feed.TicketTTL, log.With("module", "feed"))
		if kafkaClient != nil {
			feed.NewDispatcher(kafkaClient, hub, cfg.Kafka.GroupPrefix, log.With("module", "feed")).Start(ctx)
		}
	} else {
		log.Info(ctx, "live feed disabled: FEED_TICKET_SECRET not set")
	}

	// ── 7. HTTP router ──
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	httpLog := log.With("module", "http")

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(limiter.Middleware)
	r.Use(auth.Gate(sessionSvc, log.With("module", "auth")))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok", "service": "runner-service"})
	})
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(pingCtx); err != nil {
			httpLog.Warn(r.Context(), "db health check failed", "error", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		users.NewHandler(userSvc, httpLog).Routes(r)
		runs.NewHandler(runSvc, httpLog).Routes(r)
		rewards.NewHandler(rewardSvc, httpLog).Routes(r)
		companies.NewHandler(companySvc, httpLog).Routes(r)
		home.NewHandler(userSvc, runSvc, rewardSvc, httpLog).Routes(r)
		if feedHandler != nil {
			feedHandler.Routes(r)
		}
	})
	if feedHandler != nil {
		r.Route("/ws", feedHandler.SocketRoutes)
	}

	// ── 8. Start server ──
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      h2c.NewHandler(r, &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "runner-service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 9. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info(ctx, "shutting down", "signal", sig.String())
	case err := <-serveErr:
		return err
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutCancel()
	return srv.Shutdown(shutCtx)
}
