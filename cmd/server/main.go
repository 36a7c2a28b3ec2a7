// Copyright 2026 The Lexgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexgate/lexgate/internal/audit"
	"github.com/lexgate/lexgate/internal/authz"
	"github.com/lexgate/lexgate/internal/config"
	"github.com/lexgate/lexgate/internal/identity"
	"github.com/lexgate/lexgate/internal/observability/logger"
	"github.com/lexgate/lexgate/internal/observability/metrics"
	"github.com/lexgate/lexgate/internal/observability/tracing"
	"github.com/lexgate/lexgate/internal/rbac"
	"github.com/lexgate/lexgate/internal/store/postgres"
	"github.com/lexgate/lexgate/internal/tenant"
	transportHTTP "github.com/lexgate/lexgate/internal/transport/http"
	"github.com/lexgate/lexgate/internal/wall"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting lexgate authorization service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// The catalog is validated before anything else: a malformed role or
	// action table must abort startup, not surface per request.
	evaluator, err := rbac.NewEvaluator()
	if err != nil {
		slog.Error("invalid permission catalog", logger.Error(err))
		os.Exit(1)
	}

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	authzMetrics, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	restrictionRepo := postgres.NewRestrictionRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// The durable recorder decides whether an operation counts as audited;
	// the slog recorder rides along for operator visibility.
	var recorder audit.Recorder
	switch cfg.Audit.Store {
	case "log":
		recorder = audit.NewSlogRecorder()
	default:
		recorder = audit.NewFanoutRecorder(auditRepo, audit.NewSlogRecorder())
	}

	// Initialize services
	wallService := wall.NewService(restrictionRepo)
	authzService := authz.NewService(evaluator, wallService, recorder)
	tenantService := tenant.NewService(tenantRepo, recorder)
	identityService := identity.NewService(userRepo, tenantRepo, recorder)

	// Rate limiter and token verification
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	verifier := transportHTTP.NewTokenVerifier(cfg.Auth.TokenSecret, cfg.Auth.Issuer)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		authzService,
		wallService,
		tenantService,
		identityService,
		auditRepo,
		recorder,
		verifier,
		authzMetrics,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Sweep expired wall restrictions. Lazy expiry already treats them as
	// absent; the sweep reclaims storage.
	go func() {
		ticker := time.NewTicker(cfg.Wall.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			purged, err := wallService.PurgeExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "failed to purge expired restrictions", logger.Error(err))
				continue
			}
			if purged > 0 {
				slog.InfoContext(ctx, "purged expired restrictions", slog.Int64("count", purged))
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
