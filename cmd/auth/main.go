package main

import (
	"context"
	"fmt"
	"os"

	authhttp "github.com/mediarequest/backend/internal/auth/http"
	"github.com/mediarequest/backend/internal/auth/service"
	"github.com/mediarequest/backend/internal/common/bootstrap"
	"github.com/mediarequest/backend/internal/common/clock"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
	commonhttp "github.com/mediarequest/backend/internal/common/http"
	srv "github.com/mediarequest/backend/internal/common/server"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.NewAuthApp(ctx)
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to start auth service: %v\n", err))
		os.Exit(1)
	}
	log, cfg := app.Log, app.Config

	hasher, err := commoncrypto.NewBcryptHasher(cfg.PasswordHashCost)
	if err != nil {
		log.Fatalf("failed to create password hasher: %v", err)
	}

	realClock := clock.NewRealClock()
	idGenerator := commoncrypto.NewUUIDGenerator()
	tokenCfg := service.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}
	issuer, err := service.NewTokenIssuer(tokenCfg, idGenerator, realClock)
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}
	verifier, err := service.NewTokenVerifier(tokenCfg, realClock)
	if err != nil {
		log.Fatalf("failed to create token verifier: %v", err)
	}

	authService, err := service.NewAuthService(service.AuthServiceDeps{
		Repo:        app.Users,
		Hasher:      hasher,
		Issuer:      issuer,
		Verifier:    verifier,
		IDGenerator: idGenerator,
		Clock:       realClock,
		Logger:      log,
	}, service.AuthServiceConfig{
		CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
		CircuitBreakerReset:     cfg.CircuitBreakerReset,
	})
	if err != nil {
		log.Fatalf("failed to create auth service: %v", err)
	}

	if cfg.AdminBootstrapEnabled() {
		created, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminDisplayName)
		if err != nil {
			log.Fatalf("failed to bootstrap admin account: %v", err)
		}
		if created {
			log.Infof("admin account %s created", cfg.AdminEmail)
		}
	}

	handler := authhttp.NewHandler(authService, verifier, authhttp.HandlerConfig{
		RequestTimeout: cfg.RequestTimeout,
		HealthCheck:    app.HealthCheck,
	}, log)

	rateLimiter := commonhttp.NewPathRateLimiter(cfg.TrustedProxies)
	baseHandler := commonhttp.BuildBaseHandler("auth", log, handler, rateLimiter)

	server := srv.NewServer(srv.DefaultServerConfig(cfg.HTTPPort), baseHandler, log)

	shutdownHooks := append([]srv.ShutdownHook{
		func(context.Context) error {
			log.Info("auth service: stopping rate limiters")
			rateLimiter.Stop()
			return nil
		},
	}, app.Shutdown...)

	srv.StartWithGracefulShutdownAndHooks(server, log, "auth", shutdownHooks)
}
