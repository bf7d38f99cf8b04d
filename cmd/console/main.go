package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/strategy/ctxmissing"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/prometheus/client_golang/prometheus"
	adaptermiddleware "rbac-console/internal/adapters/http/middleware"
	adapterlogger "rbac-console/internal/adapters/logger"
	"rbac-console/internal/application"
	"rbac-console/internal/infrastructure"
	"rbac-console/internal/infrastructure/apiclient"
	"rbac-console/internal/infrastructure/auth"
	"rbac-console/internal/infrastructure/dynamodb"
	"rbac-console/internal/infrastructure/redis"
	"rbac-console/internal/infrastructure/storage"
	httpiface "rbac-console/internal/interfaces/http"
	"rbac-console/internal/ports"
)

func openStorage(ctx context.Context, cfg infrastructure.Config) (ports.KeyValueStore, func(), error) {
	noop := func() {}
	switch cfg.Storage {
	case infrastructure.StorageMemory:
		return storage.NewMemory(), noop, nil
	case infrastructure.StorageFile:
		f, err := storage.NewFile(cfg.SessionFile)
		return f, noop, err
	case infrastructure.StorageDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.Region, cfg.SessionTable)
		if err != nil {
			return nil, noop, err
		}
		return dynamodb.NewSessionStore(client, cfg.Namespace), noop, nil
	case infrastructure.StorageRedis:
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return redis.NewSessionStore(client, cfg.Namespace, 0), func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func main() {
	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		adapterlogger.New(adapterlogger.ParseLevel("info")).Error(context.Background(), "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New(adapterlogger.ParseLevel(cfg.LogLevel))
	xray.Configure(xray.Config{LogLevel: "error", ContextMissingStrategy: ctxmissing.NewDefaultIgnoreErrorStrategy()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "failed to open session storage", "backend", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	sessions := application.NewSessionStore(kv, logger)
	if err := sessions.Hydrate(ctx); err != nil {
		logger.Error(ctx, "failed to hydrate session", "error", err)
		os.Exit(1)
	}

	reg := prometheus.DefaultRegisterer
	redirect := httpiface.NewPendingRedirect(logger)
	expiry := application.NewSessionExpiry(sessions, redirect, logger, cfg.SessionRedirectDelay)
	defer expiry.Stop()

	client := apiclient.New(apiclient.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, sessions, logger,
		apiclient.WithMetrics(apiclient.NewMetrics(reg)),
		apiclient.WithUnauthorizedHandler(expiry.Handle))

	authSvc := application.NewAuthService(client, sessions, expiry, auth.NewUnverifiedDecoder(), logger, application.AuthConfig{
		DefaultApp:    cfg.DefaultAppName,
		RefreshWindow: cfg.RefreshWindow,
	})
	adminSvc := application.NewAdminService(client)
	appSvc := application.NewAppService(client, sessions, authSvc, adminSvc, logger, application.AppConfig{
		SimulateOnTransportFailure: cfg.AppUpdateFallback,
	})
	roleSvc := application.NewRoleService(client, sessions, authSvc, appSvc, logger)
	userSvc := application.NewUserService(client, logger)
	catalog := application.NewCatalog(appSvc, roleSvc, userSvc)
	syncer := application.NewScreenSynchronizer(application.NewScreenService(client), roleSvc, logger)

	authMode, err := adaptermiddleware.ParseAuthMode(string(cfg.AuthMode))
	if err != nil {
		logger.Error(ctx, "invalid auth mode", "error", err)
		os.Exit(1)
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(authMode, cfg.ConsoleAPIKey)
	if err != nil {
		logger.Error(ctx, "failed to initialize auth middleware", "error", err)
		os.Exit(1)
	}

	e := httpiface.NewRouter(httpiface.Handlers{
		Auth:  httpiface.NewAuthHandler(sessions, authSvc, redirect, logger),
		Apps:  httpiface.NewAppsHandler(adminSvc, appSvc),
		Roles: httpiface.NewRolesHandler(roleSvc, catalog, syncer),
		Users: httpiface.NewUsersHandler(userSvc, catalog),
	}, sessions, prometheus.DefaultGatherer, httpiface.Middleware{
		Auth:          authMiddleware,
		XRay:          adaptermiddleware.XRayMiddleware("rbac-console"),
		RequestLogger: adaptermiddleware.RequestLogger(logger),
		Metrics:       adaptermiddleware.NewHTTPMetrics(reg).Middleware(),
	})

	go func() {
		logger.Info(ctx, "starting console", "port", cfg.Port, "backend", cfg.APIBaseURL, "storage", cfg.Storage)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", "error", err)
	}
}
