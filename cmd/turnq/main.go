package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"turnq/internal/clock"
	"turnq/internal/config"
	"turnq/internal/db"
	journalpg "turnq/internal/journal/postgres"
	"turnq/internal/jobs"
	"turnq/internal/lock"
	"turnq/internal/notify"
	"turnq/internal/repository"
	"turnq/internal/repository/memory"
	repopg "turnq/internal/repository/postgres"
	"turnq/internal/retry"
	"turnq/internal/scheduler"
	"turnq/internal/service"
	"turnq/web"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("turnq: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}
	instance := cfg.Instance + "-" + uuid.NewString()[:8]

	var (
		queueRepo  repository.QueueRepository
		clientRepo repository.ClientRepository
		journal    scheduler.Journal
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		conn, err := db.Open(ctx, cfg.Postgres.ConnectionURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := db.Init(ctx, conn, lock.NewPostgresAdvisoryLock(conn)); err != nil {
			return err
		}
		queueRepo = repopg.NewPostgresQueueRepository(conn)
		clientRepo = repopg.NewPostgresClientRepository(conn)
		journal = journalpg.NewPostgresJobJournal(conn)
	default:
		queueRepo = memory.NewMemoryQueueRepository()
		clientRepo = memory.NewMemoryClientRepository()
	}

	transport, closeTransport, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	sched := scheduler.New(scheduler.Config{
		Instance:          instance,
		WorkerCount:       int64(cfg.WorkerCount),
		OverwriteExisting: cfg.OverwriteExisting,
		ExecutionTimeout:  cfg.ExecutionTimeout,
		Retention:         cfg.JobRetention,
	}, clk, journal)

	policy := retry.NewPolicy(cfg.RetryBase, time.Minute, cfg.RetryMaxAttempts)
	dispatcher := notify.NewDispatcher(clientRepo, transport, sched, policy, clk)
	svc := service.NewQueueService(queueRepo, clientRepo, sched, dispatcher, clk)

	if err := jobs.Register(ctx, sched, svc, dispatcher, cfg.WaitingTimeCron, cfg.CleanupCron); err != nil {
		return err
	}
	if _, err := sched.Restore(ctx); err != nil {
		return err
	}

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(sched, svc, queueRepo, clientRepo).Router(),
	}
	httpDone := make(chan error, 1)
	go func() {
		log.Printf("turnq %s: listening on %s", instance, cfg.HTTPAddr)
		httpDone <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		return err
	}

	log.Printf("turnq %s: shutting down", instance)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("turnq %s: http shutdown: %v", instance, err)
	}
	return <-schedDone
}

func buildTransport(cfg *config.Config) (notify.Transport, func(), error) {
	switch cfg.TransportDriver {
	case config.TransportRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return notify.NewRedisTransport(rdb, cfg.Redis.Channel), func() { rdb.Close() }, nil
	case config.TransportRabbitMQ:
		transport, err := notify.NewRabbitMQTransport(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return transport, func() { transport.Close() }, nil
	default:
		return notify.NewSimulatedTransport(cfg.DeliverySuccessRate, time.Now().UnixNano()), func() {}, nil
	}
}
