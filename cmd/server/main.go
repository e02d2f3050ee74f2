package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conexx/hub/internal/config"
	"github.com/conexx/hub/internal/contextkeys"
	"github.com/conexx/hub/internal/handler"
	appMiddleware "github.com/conexx/hub/internal/middleware"
	"github.com/conexx/hub/internal/repository"
	"github.com/conexx/hub/internal/service"
	"github.com/conexx/hub/pkg/crypto"
	"github.com/conexx/hub/pkg/logger"
	"github.com/conexx/hub/pkg/payment"
	"github.com/conexx/hub/pkg/redislock"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "conexx-hub"),
		logger.WithContextValue("request_id", chimw.RequestIDKey),
		logger.WithContextValue("user_id", contextkeys.UserID),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("database connected and migrated")

	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("encryption: %w", err)
	}

	loc := cfg.Billing.Location()
	gateway := payment.NewAsaasClient(nil, cfg.Asaas.BaseURL, cfg.Asaas.APIKey, cfg.Asaas.Timeout)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	feeRepo := repository.NewWeeklyFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo, log)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		return fmt.Errorf("admin seed: %w", err)
	}

	tenantSvc := service.NewTenantService(tenantRepo, userRepo, orderRepo, log)
	calculator := service.NewFeeCalculator(feeRepo, tenantRepo, orderRepo, loc, log)
	lifecycle := service.NewFeeLifecycle(feeRepo, tenantRepo, gateway, authSvc, loc, cfg.Billing.DueDays, log)
	reconciler := service.NewReconciler(paymentRepo, subRepo, tenantRepo, userRepo, feeRepo, lifecycle, loc, log)
	webhookSvc := service.NewWebhookService(eventRepo, reconciler, log)
	subSvc := service.NewSubscriptionService(subRepo, tenantRepo, gateway, loc, log)

	var integrationSvc *service.IntegrationService
	if cfg.Google.ClientID != "" {
		oauthCfg := service.GoogleOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		integrationSvc = service.NewIntegrationService(integrationRepo, tenantRepo, oauthCfg, enc, log)
	} else {
		log.Warn("GA_CLIENT_ID not set, analytics integration disabled")
	}

	if cfg.Billing.ScheduleInterval > 0 {
		scheduler := service.NewScheduler(calculator, integrationSvc, cfg.Billing.ScheduleInterval, log)
		if cfg.RedisURL != "" {
			rdb, err := redislock.Connect(ctx, cfg.RedisURL, 3, 2*time.Second)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rdb.Close()
			scheduler.WithLocker(redislock.New(rdb, "conexx-hub:"))
		}
		scheduler.Start(ctx)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(authSvc)
	healthHandler := handler.NewHealthHandler(db)
	plansHandler := handler.NewPlansHandler()
	tenantHandler := handler.NewTenantHandler(tenantSvc)
	feeHandler := handler.NewFeeHandler(calculator, lifecycle)
	billingHandler := handler.NewBillingHandler(subSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, cfg.Asaas.WebhookToken)
	adminHandler := handler.NewAdminHandler(tenantRepo, feeRepo, eventRepo, webhookSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(appMiddleware.Recovery(log))
	r.Use(appMiddleware.Logger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 20 req/sec per IP, burst of 40
	r.Use(appMiddleware.NewRateLimiter(ctx, 20, 40).Middleware())

	// Public
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Post("/api/webhooks/asaas", webhookHandler.HandleAsaas)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter(ctx))
		r.Post("/api/auth/login", authHandler.Login)
	})

	if integrationSvc != nil {
		integrationHandler := handler.NewIntegrationHandler(integrationSvc, cfg.Google.ReturnURL)
		r.Get("/api/integrations/google/callback", integrationHandler.Callback)
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(authSvc))
			r.Get("/api/integrations/google/authorize", integrationHandler.Authorize)
			r.Get("/api/integrations/google/status", integrationHandler.Status)
		})
	}

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		r.Get("/api/tenants/mine", tenantHandler.Mine)
		r.Get("/api/tenants/{id}", tenantHandler.Get)

		r.Get("/api/fees", feeHandler.List)
		r.Post("/api/fees/charge", feeHandler.Charge)
		r.Post("/api/fees/{id}/cancel", feeHandler.Cancel)

		r.Get("/api/billing/subscription", billingHandler.GetSubscription)
		r.Post("/api/billing/subscription", billingHandler.Checkout)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)

			r.Get("/api/admin/stats", adminHandler.GetStats)
			r.Get("/api/admin/webhook-events", adminHandler.ListWebhookEvents)

			r.Get("/api/admin/users", userHandler.List)
			r.Post("/api/admin/users", userHandler.Create)
			r.Delete("/api/admin/users/{id}", userHandler.Delete)

			r.Get("/api/admin/tenants", tenantHandler.List)
			r.Post("/api/admin/tenants", tenantHandler.Create)
			r.Patch("/api/admin/tenants/{id}", tenantHandler.Update)
			r.Put("/api/admin/tenants/{id}/orders", tenantHandler.ImportOrders)

			r.Post("/api/admin/fees/calculate", feeHandler.Calculate)
			r.Post("/api/admin/fees/calculate-all", feeHandler.CalculateAll)
			r.Post("/api/admin/fees/retroactive/preview", feeHandler.PreviewRetroactive)
			r.Post("/api/admin/fees/retroactive/commit", feeHandler.CommitRetroactive)
			r.Post("/api/admin/fees/mark-paid", feeHandler.MarkPaid)
		})
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("conexx hub listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
