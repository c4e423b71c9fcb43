// Command authd serves the tokenlife engine over HTTP.
//
// Endpoints (JSON bodies):
//
//	POST /api/auth/signin                {"username","password"}
//	POST /api/auth/refresh-token         {"refreshToken"}
//	POST /api/auth/forgot-password       {"email"}
//	POST /api/auth/validate-reset-token  {"token"}
//	POST /api/auth/reset-password        {"token","newPassword"}
//	POST /api/auth/mfa/begin             {"username","password"}
//	POST /api/auth/mfa/verify            {"pendingToken","code"}
//	POST /api/auth/signout               Authorization: Bearer <access>, {"refreshToken"}
//	GET  /api/auth/me                    Authorization: Bearer <access>
//	GET  /metrics
//
// Configuration comes from TOKENLIFE_* environment variables; see config.go.
// Without TOKENLIFE_REDIS_ADDR revocation state is kept in process, which is
// only suitable for a single instance.
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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/internal/logging"
	"github.com/MrEthical07/tokenlife/notify"
	"github.com/MrEthical07/tokenlife/revocation"
	"github.com/MrEthical07/tokenlife/storage/sqlstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.loggingOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	store, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var notifier tokenlife.Notifier = notify.NewLogNotifier(logger.Named("notify"))
	if cfg.SMTPHost != "" {
		smtpNotifier, err := notify.NewSMTPNotifier(cfg.smtpConfig())
		if err != nil {
			return err
		}
		notifier = smtpNotifier
	}

	builder := tokenlife.New().
		WithConfig(engineCfg).
		WithUserDirectory(store).
		WithResetRequestStore(store).
		WithNotifier(notifier).
		WithMFACodeSender(notify.NewMFAMailer(store, notifier)).
		WithLogger(logger.Named("engine")).
		WithAuditSink(tokenlife.NewZapSink(logger))

	sweep := &sweeper{resets: store, logger: logger.Named("sweeper")}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
	} else {
		logger.Warn("TOKENLIFE_REDIS_ADDR not set, revocation state is process-local")
		memStore := revocation.NewMemoryStore(nil)
		sweep.revocations = memStore
		builder = builder.WithRevocationStore(memStore)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	if err := seedUser(ctx, cfg, store, engine); err != nil {
		return err
	}

	go sweep.run(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newServer(engine, store, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func seedUser(ctx context.Context, cfg config, store *sqlstore.Store, engine *tokenlife.Engine) error {
	if cfg.SeedUsername == "" {
		return nil
	}
	if _, err := store.LoadUser(ctx, cfg.SeedUsername); err == nil {
		return nil
	} else if !errors.Is(err, tokenlife.ErrUserNotFound) {
		return err
	}

	hash, err := engine.HashPassword(cfg.SeedPassword)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	_, err = store.CreateUser(ctx, tokenlife.UserRecord{
		Username:     cfg.SeedUsername,
		Email:        cfg.SeedEmail,
		PasswordHash: hash,
		Authorities:  []string{"ROLE_USER"},
	})
	return err
}

type expiredResetDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sweeper removes expired reset requests and, when revocation state is
// process-local, expired revocation entries that are never read again.
type sweeper struct {
	resets      expiredResetDeleter
	revocations *revocation.MemoryStore
	logger      *zap.Logger
}

func (s *sweeper) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *sweeper) sweep(ctx context.Context, now time.Time) {
	if s.revocations != nil {
		if n := s.revocations.Sweep(); n > 0 {
			s.logger.Debug("swept revocation entries", zap.Int("entries", n))
		}
	}

	n, err := s.resets.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Warn("sweep reset requests", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("swept reset requests", zap.Int64("rows", n))
	}
}
