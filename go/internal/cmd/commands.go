package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/tagchase/go/internal/api"
	"github.com/mcdev12/tagchase/go/internal/game"
	"github.com/mcdev12/tagchase/go/internal/live"
	"github.com/mcdev12/tagchase/go/internal/models"
	"github.com/mcdev12/tagchase/go/internal/querycache"
	"github.com/mcdev12/tagchase/go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tagchase",
		Short:         "Follow a tag game from the terminal.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.resolve(cmd.Flags()); err != nil {
				return err
			}
			if cfg.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&cfg.configPath, "config", "c", defaultConfigPath, "YAML config file")
	fs.StringVar(&cfg.apiURL, "api-url", api.DefaultBaseURL, "REST API base URL")
	fs.StringVar(&cfg.wsURL, "ws-url", live.DefaultURL, "live game channel URL")
	fs.DurationVar(&cfg.requestTimeout, "timeout", 15*time.Second, "REST request timeout")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log debug output")

	cmd.AddCommand(newWatchCmd(cfg), newLeaderboardCmd(cfg))

	return cmd
}

func newWatchCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sign in or spectate and print live game activity until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.requireLogin(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cfg, newPrinter(cmd.OutOrStdout()))
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.username, "username", "u", "", "account username")
	fs.StringVarP(&cfg.password, "password", "p", "", "account password")
	fs.BoolVarP(&cfg.spectate, "spectate", "s", false, "watch without signing in")
	fs.DurationVar(&cfg.reconnectDelay, "reconnect-delay", 5*time.Second, "wait before reconnecting the live channel")

	return cmd
}

func newLeaderboardCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current leaderboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.New(cfg.apiConfig(), nil)

			standings, err := client.Leaderboard(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch leaderboard: %w", err)
			}

			newPrinter(cmd.OutOrStdout()).leaderboard(standings)
			return nil
		},
	}
}

// watch runs the game App until ctx is done, printing its merged view
// whenever the live feed or a REST query changes it
func watch(ctx context.Context, cfg *Config, p *printer) error {
	store := session.New()
	client := api.New(cfg.apiConfig(), store)
	synchronizer := live.NewSynchronizer(cfg.liveConfig())
	cache := querycache.New()
	app := game.NewApp(client, store, synchronizer, cache)

	if cfg.spectate {
		app.Spectate()
		log.Info().Msg("spectating")
	} else {
		user, err := app.SignIn(ctx, models.Credentials{Username: cfg.username, Password: cfg.password})
		if err != nil {
			return err
		}
		name := cfg.username
		if user != nil {
			name = user.DisplayName()
		}
		log.Info().Str("user", name).Msg("signed in")
	}

	updates, unsubscribe := synchronizer.Subscribe(16)
	defer unsubscribe()
	refreshed, unsubscribeCache := cache.Subscribe(16)
	defer unsubscribeCache()

	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	for {
		select {
		case err := <-done:
			return err
		case <-updates:
			p.update(app.View())
		case <-refreshed:
			p.update(app.View())
		}
	}
}
