package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/app"
	"github.com/2eliot/Inefablestore/config"
	"github.com/2eliot/Inefablestore/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Overload(".env"); err != nil {
			log.Printf("Warning: .env file not found, using system environment variables")
		}
	}

	l, err := logger.Init(os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer l.Sync()

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application
	a, err := app.Initialize(ctx, cfg, l)
	if err != nil {
		l.Fatal("failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker/Render)
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      a.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.S().Infof("🚀 Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}
	zap.S().Info("server exited")
}
