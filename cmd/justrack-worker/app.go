package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/JusTrack/JusTrack/config"
	"github.com/JusTrack/JusTrack/internal/broker/kafka"
	"github.com/JusTrack/JusTrack/internal/cache/rediscache"
	"github.com/JusTrack/JusTrack/internal/registry"
	"github.com/JusTrack/JusTrack/internal/services/consultas"
	"github.com/JusTrack/JusTrack/internal/services/scheduler"
	"github.com/JusTrack/JusTrack/internal/storage/pgconsulta"
)

type workerFactories struct {
	newStorage   func(cfg *config.Config) (st *pgconsulta.Storage, closeFn func(), err error)
	newPublisher func(cfg *config.Config) registry.Publisher
	newLimiter   func(cfg *config.Config) registry.Limiter
	newRegistry  func(cfg *config.Config) *registry.Registry
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (*pgconsulta.Storage, func(), error) {
			if cfg.Database.SSLMode == "" {
				cfg.Database.SSLMode = "disable"
			}
			st, err := pgconsulta.New(cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newPublisher: func(cfg *config.Config) registry.Publisher {
			brokers := []string{cfg.Kafka.Addr()}
			return kafka.NewAtualizacoesProducer(brokers, cfg.Kafka.ProcessoAtualizadoTopicName)
		},
		newLimiter: func(cfg *config.Config) registry.Limiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newRegistry: func(cfg *config.Config) *registry.Registry {
			return registry.New(registry.Options{FakeMode: cfg.JusTrack.FakeMode})
		},
	}
}

// RunJusTrackWorker sobe o executor de monitoramentos: o laço do scheduler
// mais o servidor HTTP operacional, onde os monitoramentos desta instância
// são gerenciados.
func RunJusTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	st, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	reg := f.newRegistry(cfg)
	disp := registry.NewDispatcher(reg, st, f.newPublisher(cfg), f.newLimiter(cfg), nil)
	agenda := scheduler.New(disp, nil)
	if cfg.JusTrack.WorkerTickIntervalSeconds > 0 {
		agenda.WithTickInterval(time.Duration(cfg.JusTrack.WorkerTickIntervalSeconds) * time.Second)
	}
	svc := consultas.New(st, nil, 0)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    cfg.JusTrack.WorkerHTTPAddr,
			swaggerPath: workerSwaggerPath(cfg),
			reg:         reg,
			disp:        disp,
			agenda:      agenda,
			svc:         svc,
			cfg:         cfg,
		})
	}()

	slog.Info("scheduler started", "tickSeconds", cfg.JusTrack.WorkerTickIntervalSeconds)
	schedErr := make(chan error, 1)
	go func() {
		schedErr <- agenda.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-schedErr:
		return err
	case err := <-httpErr:
		return err
	}
}

func workerSwaggerPath(cfg *config.Config) string {
	if cfg.JusTrack.WorkerSwaggerJSONPath != "" {
		return cfg.JusTrack.WorkerSwaggerJSONPath
	}
	return os.Getenv("swaggerPath")
}
