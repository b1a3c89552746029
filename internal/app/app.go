package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/innercirclehq/innercircle/internal/bot"
	"github.com/innercirclehq/innercircle/internal/card"
	"github.com/innercirclehq/innercircle/internal/config"
	"github.com/innercirclehq/innercircle/internal/db"
	"github.com/innercirclehq/innercircle/internal/invites"
	"github.com/innercirclehq/innercircle/internal/members"
	"github.com/innercirclehq/innercircle/internal/telegram"
	"github.com/innercirclehq/innercircle/internal/web"
)

// apiClientTimeout bounds every Bot API round trip, including the
// profile-photo listing and file-resolution calls; tgbotapi does not
// plumb a context through, so the client timeout is the only guard
// against a stalled connection. Sized above the long-poll window so
// getUpdates completes normally.
const apiClientTimeout = (bot.LongPollSeconds + 15) * time.Second

func newAPIClient() *http.Client {
	return &http.Client{Timeout: apiClientTimeout}
}

// App holds the application state.
type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Store  members.Store
	Bot    *bot.Bot

	httpServer *http.Server
}

// New creates and initializes a new application instance.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	setupLogger(cfg.LogLevel)

	log.Info().Msg("Initializing Inner Circle bot")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	log.Info().Msg("Connecting to database...")
	pool, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Info().Msg("Production mode: migrations must be run manually")
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, newAPIClient())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("Telegram bot authorized")

	store := members.NewPGStore(pool, invites.GenerateCode)
	engine := invites.NewEngine(store)

	photos := telegram.NewPhotoClient(api, cfg.PhotoTimeoutMS)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	renderer := card.NewRenderer(cfg.AssetsDir, photos, rng)

	app := &App{
		Config: cfg,
		DB:     pool,
		Store:  store,
		Bot:    bot.New(api, store, engine, renderer),
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      web.NewRouter(pool, store),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	log.Info().Msg("Application initialized successfully")
	return app, nil
}

// Start runs the bot long-poll loop and the admin HTTP server until
// ctx is canceled or either fails.
func (a *App) Start(ctx context.Context) error {
	errChan := make(chan error, 2)

	go func() {
		log.Info().Str("addr", a.httpServer.Addr).Msg("Starting admin HTTP server")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("admin server: %w", err)
			return
		}
		errChan <- nil
	}()

	go func() {
		errChan <- a.Bot.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes the pool.
func (a *App) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down application")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop admin server: %w", err)
	}

	if a.DB != nil {
		log.Info().Msg("Closing database connection")
		a.DB.Close()
	}
	return nil
}

// setupLogger configures the global logger.
func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logger configured")
}
