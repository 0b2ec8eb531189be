package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JusTrack/JusTrack/config"
	"github.com/JusTrack/JusTrack/internal/broker/kafka"
	"github.com/JusTrack/JusTrack/internal/cache/rediscache"
	"github.com/JusTrack/JusTrack/internal/registry"
	"github.com/JusTrack/JusTrack/internal/services/consultas"
	"github.com/JusTrack/JusTrack/internal/services/scheduler"
	"github.com/JusTrack/JusTrack/internal/storage/pgconsulta"
)

type justrackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   justrackAPIOpts

	svc      *consultas.Service
	disp     *registry.Dispatcher
	reg      *registry.Registry
	agenda   *scheduler.Scheduler
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapJusTrackAPI() *justrackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("erro ao carregar config, %v", err))
	}

	httpAddr := cfg.JusTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.JusTrack.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "justrack-api"
	}
	topic := cfg.Kafka.ProcessoAtualizadoTopicName
	if topic == "" {
		topic = "processo.atualizado"
	}
	cacheTTL := time.Duration(cfg.JusTrack.RetratoTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	rc := rediscache.New(cfg.Redis.Addr())
	rl := rediscache.NewRateLimiter(cfg.Redis.Addr())

	brokers := []string{cfg.Kafka.Addr()}
	producer := kafka.NewAtualizacoesProducer(brokers, topic)
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	reg := registry.New(registry.Options{FakeMode: cfg.JusTrack.FakeMode})
	disp := registry.NewDispatcher(reg, st, producer, rl, nil)
	agenda := scheduler.New(disp, nil)
	svc := consultas.New(st, rc, cacheTTL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &justrackAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: justrackAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		disp:     disp,
		reg:      reg,
		agenda:   agenda,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgconsulta.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgconsulta.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *justrackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *justrackAPIApp) Run() error {
	return runJusTrackAPI(a.ctx, a.opts, a.reg, a.disp, a.agenda, a.svc, a.consumer)
}
