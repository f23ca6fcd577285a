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

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"partyvote/internal/app"
	"partyvote/internal/commands"
	"partyvote/internal/config"
	"partyvote/internal/directory"
	"partyvote/internal/notify"
	discordTransport "partyvote/internal/transport/discord"
	httpTransport "partyvote/internal/transport/http"
)

const releaseVersion = "0.1.0"

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg := &config.Config{}
	cobra.CheckErr(config.NewCommand(cfg, releaseVersion, run).Execute())
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting partyvote",
		"version", releaseVersion,
		"env", cfg.Server.Env,
		"store", cfg.Store.Kind,
		"mainChannel", cfg.Game.MainChannel,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := app.NewHub(logger)
	defer hub.Close()

	var session *discordgo.Session
	var resolver directory.Resolver
	if cfg.Discord.Token != "" {
		session, err = discordTransport.NewSession(cfg.Discord.Token)
		if err != nil {
			return err
		}
		resolver = discordTransport.Resolver(session)
	}

	names, err := directory.New(cfg.Game.DirectoryCacheSize, resolver, logger)
	if err != nil {
		return err
	}

	notifiers := []app.Notifier{hub, notify.NewLogNotifier(logger)}
	if session != nil && cfg.Discord.Channel != "" {
		notifiers = append(notifiers, discordTransport.NewChannelNotifier(session, cfg.Discord.Channel))
	}

	ledger := app.NewVoteLedger(app.LedgerConfig{
		Store:        st,
		Notifier:     notify.NewMulti(notifiers...),
		Publisher:    hub,
		StoreTimeout: cfg.Store.Timeout,
		Logger:       logger.With("component", "ledger"),
	})
	if err := ledger.Restore(ctx); err != nil {
		return err
	}

	engine := app.NewMatchEngine(app.EngineConfig{
		Store:        st,
		Publisher:    hub,
		StoreTimeout: cfg.Store.Timeout,
		Logger:       logger.With("component", "engine"),
	})
	if err := engine.Restore(ctx); err != nil {
		return err
	}

	dispatcher := commands.NewDispatcher(commands.Config{
		Ledger:      ledger,
		Engine:      engine,
		Names:       names,
		MainChannel: cfg.Game.MainChannel,
		Logger:      logger.With("component", "commands"),
	})

	server := httpTransport.NewServer(cfg, httpTransport.Deps{
		Ledger:     ledger,
		Engine:     engine,
		Dispatcher: dispatcher,
		Hub:        hub,
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if session != nil {
		bot := discordTransport.NewBot(session, dispatcher, logger)
		if err := bot.Open(); err != nil {
			return err
		}
		defer bot.Close()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logOpts := &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}

	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, logOpts))
}
