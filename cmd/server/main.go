package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/trivia-go/internal/api"
	"github.com/mcoot/trivia-go/internal/config"
	"github.com/mcoot/trivia-go/internal/factory"
)

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trivia-server",
		Short: "Hosts one multiplayer trivia session over a line protocol.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	config.Bind(cmd, cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, cfg.Factory(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("closing storage", slog.String("error", err.Error()))
		}
	}()

	if err := app.GameServer.Listen(); err != nil {
		return err
	}

	httpConfig, httpEnabled := cfg.HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	gameCtx, stopGame := context.WithCancel(gctx)
	defer stopGame()

	g.Go(func() error {
		return app.GameServer.Serve(gameCtx)
	})

	g.Go(func() error {
		summary, err := app.Session.Run(gameCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("session cancelled before completion")
				return nil
			}
			return err
		}
		logger.Info("session finished",
			slog.String("session_id", string(summary.ID)),
			slog.String("winner", summary.Winner()),
		)

		// the game listener closes with the session; the status API stays up until signalled
		stopGame()
		if !httpEnabled {
			stop()
		}
		return nil
	})

	if httpEnabled {
		server := api.NewServer(app.Router(), httpConfig, logger)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}
