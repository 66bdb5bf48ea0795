// @title        Auth Service API
// @version      1.0
// @description  Registration, login and JWT access/refresh token lifecycle.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/security"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
	log.Info().Msg("auth service stopped")
}

// stores is the credential and audit persistence of the selected driver.
type stores struct {
	users  ports.AuthRepository
	events ports.EventRepository
	ping   handler.Check
	close  func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	checks := map[string]handler.Check{cfg.StoreDriver: st.ping}

	var denylist ports.TokenDenylist
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		denylist = redisstore.NewDenylist(rdb)
		checks["redis"] = redisstore.Ping(rdb)
	} else {
		log.Warn().Msg("redis disabled, token revocation unavailable")
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewEventService(st.events, log), log)
	// The audit workers outlive the signal context so events accepted before
	// shutdown are flushed after the HTTP server stops and before the store
	// closes.
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher.Start(auditCtx)
	defer func() {
		stopAudit()
		dispatcher.Wait()
	}()

	authService := service.NewAuthService(service.AuthDeps{
		Repo:     st.users,
		Hasher:   security.NewBcryptHasher(),
		Cipher:   security.NewAESCipher(),
		Codec:    security.NewJWTCodec(),
		Denylist: denylist,
		Events:   dispatcher,
		Logger:   log,
	}, service.AuthConfig{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL.Duration(),
		RefreshTTL:    cfg.Token.RefreshTTL.Duration(),
	})

	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		Logger:      log,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("auth service listening")
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serverDone <- err
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("http listener %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			users:  pgstore.NewAuthRepository(db),
			events: pgstore.NewEventRepository(db),
			ping:   pgstore.Ping(db),
			close:  func(context.Context) error { return db.Close() },
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongostore.NewAuthRepository(db)
		events := mongostore.NewEventRepository(db)
		if err := mongostore.EnsureIndexes(ctx, users, events); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			users:  users,
			events: events,
			ping:   mongostore.Ping(db),
			close:  client.Disconnect,
		}, nil
	}
}
