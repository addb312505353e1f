package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/ai/gemini"
	"github.com/spigell/intraview/internal/coach"
	"github.com/spigell/intraview/internal/secrets"
	"github.com/spigell/intraview/internal/speech"
	"github.com/spigell/intraview/internal/store"
	"github.com/spigell/intraview/internal/tasks"
)

// worker consumes scheduled tasks until its context is cancelled.
type worker interface {
	tasks.Scheduler
	Run(ctx context.Context) error
}

// application is the coach service with the collaborators it was built from.
type application struct {
	service *coach.Service
	store   store.RunStore
	worker  worker
	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires the store, the task queue, the AI coach and the optional
// speech adapter into a coach service. On error everything opened so far is
// closed again.
func buildApp(ctx context.Context, config *Config, log *zap.Logger) (_ *application, err error) {
	a := &application{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	runs, err := openStore(ctx, config.Store, log)
	if err != nil {
		return nil, err
	}
	a.store = runs
	a.closers = append(a.closers, runs.Close)

	router := tasks.NewRouter(log.Named("tasks"), config.Queue.TaskTimeout)

	a.worker, err = openQueue(ctx, config.Queue, router, log, a)
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model, config.AI.Gemini.MaxRetries, log.Named("ai"))
	if err != nil {
		return nil, fmt.Errorf("initializing gemini: %w", err)
	}
	aiCoach := gemini.NewCoach(generator, log.Named("ai"), config.AI.Gemini.MaxLogLength)

	var transcriber speech.Transcriber
	if config.Speech.Enabled {
		google, err := speech.NewGoogle(ctx, speech.GoogleConfig{
			LanguageCode:    config.Speech.LanguageCode,
			Model:           config.Speech.Model,
			CredentialsFile: config.Speech.CredentialsFile,
		}, log.Named("speech"))
		if err != nil {
			return nil, fmt.Errorf("initializing speech: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := google.Close(); err != nil {
				log.Warn("closing speech client", zap.Error(err))
			}
		})
		transcriber = google
	}

	a.service, err = coach.New(coach.Dependencies{
		Store:       runs,
		Scheduler:   a.worker,
		Generator:   aiCoach,
		Scorer:      aiCoach,
		Transcriber: transcriber,
		Logger:      log.Named("coach"),
	})
	if err != nil {
		return nil, err
	}
	a.service.Register(router)

	return a, nil
}

func openStore(ctx context.Context, config *StoreConfig, log *zap.Logger) (store.RunStore, error) {
	switch config.Driver {
	case "postgres":
		pg, err := store.Connect(ctx, config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if config.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		log.Info("using postgres run store")
		return pg, nil
	default:
		log.Info("using in-memory run store", zap.String("hint", "runs are lost on restart"))
		return store.NewMemory(), nil
	}
}

func openQueue(ctx context.Context, config *QueueConfig, router *tasks.Router, log *zap.Logger, a *application) (worker, error) {
	opts := tasks.Options{Workers: config.Workers, QueueSize: config.Size}

	switch config.Driver {
	case "redis":
		redisOpts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				log.Warn("closing redis client", zap.Error(err))
			}
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		log.Info("using redis task queue", zap.String("queue", config.Key))
		return tasks.NewRedis(client, router, log.Named("queue"), tasks.RedisOptions{Options: opts, Key: config.Key}), nil
	default:
		log.Info("using in-process task queue")
		return tasks.NewLocal(router, log.Named("queue"), opts), nil
	}
}
