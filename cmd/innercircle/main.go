package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/innercirclehq/innercircle/internal/app"
	"github.com/innercirclehq/innercircle/internal/config"
	"github.com/innercirclehq/innercircle/internal/members"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		os.Exit(runSeed(os.Args[2:]))
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	cronScheduler, err := setupStatsDigestCron(application.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup stats cron: %v\n", err)
		os.Exit(1)
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- application.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if sderr := application.Shutdown(shutdownCtx); sderr != nil {
				log.Error().Err(sderr).Msg("Shutdown failed")
			}
			os.Exit(1)
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := application.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
			os.Exit(1)
		}
	}
}

// setupStatsDigestCron schedules a daily membership stats digest.
func setupStatsDigestCron(store members.Store) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc("0 9 * * *", func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Stats digest job panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := store.Stats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Stats digest job failed")
			return
		}

		log.Info().
			Int("total", stats.Total).
			Int("founding", stats.Founding).
			Int("invited", stats.Invited).
			Msg("Daily membership digest")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule stats digest: %w", err)
	}

	return c, nil
}
