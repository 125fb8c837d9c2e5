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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"medical-matrix/internal/config"
	"medical-matrix/internal/insight"
	"medical-matrix/internal/intake"
	"medical-matrix/internal/matrix"
	"medical-matrix/internal/patient"
	"medical-matrix/internal/platform/httpx"
	"medical-matrix/internal/platform/observability"
	"medical-matrix/internal/platform/postgres"
	"medical-matrix/internal/platform/redis"
	"medical-matrix/internal/platform/retry"
	"medical-matrix/internal/platform/telegram"
	"medical-matrix/internal/platform/validation"
	"medical-matrix/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx := context.Background()

	// 1. Tracing
	if cfg.OTEL.Enabled {
		shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled: exporter setup failed")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("failed to flush traces")
				}
			}()
		}
	}

	// 2. Infrastructure
	dsn := cfg.Database.DatabaseURL()
	pg, err := postgres.NewClient(ctx, dsn, retry.DefaultConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	defer pg.Close()

	if err := postgres.Migrate(cfg.Database.MigrationsPath, dsn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Msg("migrations applied")

	var notifier intake.Notifier
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, form saved events will not be published")
		} else {
			defer rc.Close()
			notifier = redis.NewPublisher(rc)
		}
	}

	var reportSender insight.ReportSender
	if cfg.Telegram.Token != "" && cfg.Telegram.PractitionerChatID != 0 {
		reportSender = report.NewService(telegram.NewClient(cfg.Telegram.Token), cfg.Telegram.PractitionerChatID, nil)
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN or PRACTITIONER_CHAT_ID not set, practitioner reports are disabled")
	}

	// 3. Services
	v := validation.New()
	db := pg.DB()

	patientSvc := patient.NewService(patient.NewRepository(db), v)
	insightSvc := insight.NewService(insight.NewRepository(db), reportSender)
	matrixSvc := matrix.NewService(matrix.NewRepository(db))
	intakeSvc := intake.NewService(intake.NewRepository(db), v)

	sessions := intake.NewSessionManager(intakeSvc, notifier,
		intake.WithDelay(cfg.AutoSave.Delay),
		intake.WithAckWindow(cfg.AutoSave.AckWindow),
		intake.WithSaveTimeout(cfg.AutoSave.SaveTimeout),
	)
	defer sessions.CloseAll()

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-Id, Authorization")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(pg))
		patient.RegisterRoutes(r, patient.NewHandler(patientSvc))
		insight.RegisterRoutes(r, insight.NewHandler(insightSvc))
		matrix.RegisterRoutes(r, matrix.NewHandler(matrixSvc, v))
		intake.RegisterRoutes(r, intake.NewHandler(intakeSvc, sessions))
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
}

func healthHandler(pg *postgres.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pg.Ping(ctx); err != nil {
			httpx.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		httpx.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
