package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/config"
	"github.com/alex-gusto/buzzer/internal/v1/dispatcher"
	"github.com/alex-gusto/buzzer/internal/v1/health"
	"github.com/alex-gusto/buzzer/internal/v1/httpapi"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/middleware"
	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
	"github.com/alex-gusto/buzzer/internal/v1/ratelimit"
	"github.com/alex-gusto/buzzer/internal/v1/registry"
	"github.com/alex-gusto/buzzer/internal/v1/tracing"
	"github.com/alex-gusto/buzzer/internal/v1/transport"
)

const serviceName = "trivia-room-core"

func main() {
	// absence of a .env file is normal in production; fields are sourced from
	// the real environment either way
	_ = godotenv.Load()

	cfg, err := config.ValidateEnv(os.LookupEnv)
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()

	tp, err := tracing.InitTracer(ctx, serviceName, cfg.OtelCollectorAddr)
	if err != nil {
		logging.Error(ctx, "failed to init tracer", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	questions := questionsource.NewHTTPSource(
		cfg.QuestionSourceURL,
		time.Duration(cfg.QuestionSourceTimeoutMs)*time.Millisecond,
	)

	reg := registry.New(time.Duration(cfg.RoomCleanupGraceMs)*time.Millisecond, questions)
	disp := dispatcher.New(reg)

	limiter, err := ratelimit.New(cfg)
	if err != nil {
		logging.Error(ctx, "failed to build rate limiter", zap.Error(err))
		panic(err)
	}

	hub := transport.New(disp, limiter, cfg.AllowedOrigins)
	handlers := httpapi.New(disp)
	healthHandler := health.NewHandler(questions)

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	httpapi.RegisterRoutes(router, handlers, hub, limiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	logging.Info(ctx, "server exited")
}
