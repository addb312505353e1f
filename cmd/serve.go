package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/intraview/internal/logger"
	"github.com/spigell/intraview/internal/secrets"
	"github.com/spigell/intraview/internal/server"
	"github.com/spigell/intraview/internal/sweeper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API together with the task workers and the generation watchdog",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-api", false, "do not start the HTTP API (worker only replica)")
	serveCmd.Flags().Bool("no-worker", false, "do not consume tasks (API only replica, requires the redis queue)")
}

func serve(cmd *cobra.Command) {
	noAPI, _ := cmd.Flags().GetBool("no-api")
	noWorker, _ := cmd.Flags().GetBool("no-worker")

	component := "api"
	switch {
	case noAPI:
		component = "worker"
	case !noWorker:
		component = "all"
	}

	log := mustLogger(component)
	defer log.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	if noAPI && noWorker {
		log.Fatal("nothing to serve", zap.String("hint", "drop one of --no-api and --no-worker"))
	}
	if noWorker && config.Queue.Driver != "redis" {
		log.Fatal("--no-worker needs a shared queue", zap.String("hint", "set queue.driver to redis"))
	}

	log.Info("starting the intraview", zap.String("version", version), zap.String("store", config.Store.Driver), zap.String("queue", config.Queue.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, config, log)
	if err != nil {
		log.Fatal("initializing the application", zap.Error(err))
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	if !noWorker {
		g.Go(func() error { return a.worker.Run(ctx) })

		watchdog := sweeper.New(a.store, log.Named("sweeper"), config.Sweeper.Schedule, config.Sweeper.GenerationTimeout)
		g.Go(func() error { return watchdog.Run(ctx) })
	}

	if !noAPI {
		jwtSecret, err := secrets.Optional(secrets.Source{
			Name:  "jwt secret",
			Value: config.Auth.JWTSecret,
			File:  config.Auth.JWTSecretFile,
			Env:   "JWT_SECRET",
		})
		if err != nil {
			log.Fatal("loading jwt secret", zap.Error(err))
		}
		if jwtSecret == "" {
			log.Warn("jwt secret is not configured, every request is anonymous")
		}

		api := server.New(a.service, server.Config{
			Addr:          config.Listen,
			JWTSecret:     jwtSecret,
			MaxAudioBytes: config.Speech.MaxAudioBytes,
		}, log.Named("http"))
		g.Go(func() error { return api.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped with error", zap.Error(err))
		return
	}

	log.Info("bye")
}

func mustLogger(component string) *zap.Logger {
	l, err := logger.New(logger.Options{
		JSON:      viper.GetBool("json"),
		Debug:     viper.GetBool("debug"),
		Component: component,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
