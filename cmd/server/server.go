package server

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/handlers"
	"github.com/draftforge/go-contract-session/internal/category"
	"github.com/draftforge/go-contract-session/internal/config"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/persistence"
	"github.com/draftforge/go-contract-session/internal/session"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the contract session HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runServer(cmd.Context()); err != nil {
				log.Fatal().Err(err).Msg("Server terminated")
			}
		},
	}
}

func runServer(ctx context.Context) error {
	cfg := config.DefaultServiceConfigFromEnv()
	clock := time2.DefaultClock
	ttl := ttlPolicy(cfg.SessionTTL)

	local := persistence.NewMemoryStore(ttl, clock)

	var remote persistence.RemoteBackend
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		remote = persistence.NewRedisStore(redis.NewClient(opts), ttl, clock)
		log.Info().Msg("Remote session backend configured")
	} else {
		log.Info().Msg("No remote backend configured, running on the in-process store")
	}

	store := persistence.NewRouter(remote, local, persistence.RouterOptions{
		LockTTL:            cfg.Lock.TTL,
		LockAcquireTimeout: cfg.Lock.AcquireTimeout,
		LockRetryInterval:  cfg.Lock.RetryInterval,
	}, clock)

	provider, err := category.LoadDir(cfg.CategoriesDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.CategoriesDir).Msg("Category catalog unavailable, starting with an empty catalog")
		provider = category.NewStaticProvider(nil, nil)
	}

	srv := api.NewServer(cfg, store, contract.NewService(provider, nil))
	handlers.AttachAllRoutes(srv)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := persistence.NewSweeper(local, ttl, clock,
		cfg.Sweep.Interval, cfg.Sweep.AbandonedGrace,
		documentArtifactChecker(cfg.DocumentsDir), nil)
	go sweeper.Run(ctx)

	go func() {
		if err := srv.Start(); err != nil {
			log.Warn().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ttlPolicy(cfg config.SessionTTL) session.TTLPolicy {
	return session.TTLPolicy{
		Draft:  time.Duration(cfg.DraftHours) * time.Hour,
		Filled: time.Duration(cfg.FilledHours) * time.Hour,
		Signed: time.Duration(cfg.SignedDays) * 24 * time.Hour,
	}
}

func documentArtifactChecker(dir string) persistence.ArtifactChecker {
	return func(sessionID string) bool {
		_, err := os.Stat(filepath.Join(dir, "contract_"+sessionID+".docx"))
		return err == nil
	}
}
