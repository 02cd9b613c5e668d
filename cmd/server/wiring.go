package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"tally/internal/platform/config"
	"tally/internal/platform/kafka"
	"tally/internal/platform/lock"
	"tally/internal/platform/postgres"
	"tally/internal/platform/ratelimit"
	"tally/internal/platform/redis"
	"tally/internal/reconciliation/metrics"
	"tally/internal/reconciliation/publisher"
	reconservice "tally/internal/reconciliation/service"
	reconstore "tally/internal/reconciliation/store"
	shiftmetrics "tally/internal/shift/metrics"
	shiftservice "tally/internal/shift/service"
	shiftstore "tally/internal/shift/store"
	"tally/internal/tenant"
	tenantmetrics "tally/internal/tenant/metrics"
	tenantservice "tally/internal/tenant/service"
	tenantstore "tally/internal/tenant/store"
)

// app holds the wired services and the resources that must be released on
// shutdown.
type app struct {
	storage        string
	db             *sql.DB
	redis          *redis.Client
	kafka          *kgo.Client
	events         *publisher.Async
	tenants        *tenant.Service
	reconciliation *reconservice.Service
	shifts         *shiftservice.Service
}

type stores struct {
	reconciliation reconservice.Store
	tenants        tenantservice.Store
	shifts         shiftservice.Store
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (_ *app, err error) {
	a := &app{storage: "memory"}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	st, err := a.openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	var locker reconservice.Locker = lock.NewKeyed()
	tenantOpts := []tenantservice.Option{
		tenantservice.WithLogger(log),
		tenantservice.WithMetrics(tenantmetrics.New(reg)),
	}
	if a.redis != nil {
		locker = lock.NewRedis(a.redis.Client, lock.WithTTL(cfg.Redis.LockTTL), lock.WithLogger(log))
		tenantOpts = append(tenantOpts, tenantservice.WithMerchantCache(tenantstore.NewRedisMerchants(a.redis.Client, 0)))
	}

	a.tenants, err = tenant.NewService(st.tenants, tenantOpts...)
	if err != nil {
		return nil, err
	}

	reconMetrics := metrics.New(reg)
	sink, err := a.openPublisher(ctx, cfg, log, reconMetrics)
	if err != nil {
		return nil, err
	}
	a.reconciliation, err = reconservice.New(st.reconciliation, cfg.Reconciliation,
		reconservice.WithDirectory(a.tenants),
		reconservice.WithMerchantVerifier(a.tenants),
		reconservice.WithLocker(locker),
		reconservice.WithPublisher(sink),
		reconservice.WithLogger(log),
		reconservice.WithMetrics(reconMetrics),
	)
	if err != nil {
		return nil, err
	}

	a.shifts, err = shiftservice.New(st.shifts, a.tenants, a.reconciliation,
		shiftservice.WithLogger(log),
		shiftservice.WithMetrics(shiftmetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStores uses Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func (a *app) openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		return &stores{
			reconciliation: reconstore.NewInMemory(),
			tenants:        tenantstore.NewInMemory(),
			shifts:         shiftstore.NewInMemory(),
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.storage = "postgres"
	for _, schema := range []string{tenantstore.Schema, reconstore.Schema, shiftstore.Schema} {
		if err := postgres.Migrate(ctx, db, schema); err != nil {
			return nil, err
		}
	}
	return &stores{
		reconciliation: reconstore.NewPostgres(db),
		tenants:        tenantstore.NewPostgres(db),
		shifts:         shiftstore.NewPostgres(db),
	}, nil
}

// openPublisher returns the Kafka publisher behind an async queue, or a
// log-only publisher when no brokers are configured.
func (a *app) openPublisher(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (reconservice.Publisher, error) {
	kcfg := kafka.Config{
		Brokers:           cfg.Kafka.Brokers,
		Topic:             cfg.Kafka.Topic,
		ClientID:          cfg.Kafka.ClientID,
		Partitions:        cfg.Kafka.Partitions,
		ReplicationFactor: 1,
	}
	client, err := kafka.NewClient(kcfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info("KAFKA_BROKERS not set, events are logged only")
		return publisher.NewLog(log), nil
	}
	a.kafka = client
	if err := kafka.EnsureTopic(ctx, client, kcfg); err != nil {
		return nil, err
	}
	k := publisher.NewKafka(client,
		publisher.WithTopic(cfg.Kafka.Topic),
		publisher.WithLogger(log),
		publisher.WithMetrics(m),
	)
	a.events = publisher.NewAsync(k, cfg.Kafka.EventBuffer, log, m)
	return a.events, nil
}

// rateStore shares ingest limits across replicas when Redis is configured.
func (a *app) rateStore() ratelimit.Store {
	if a.redis != nil {
		return ratelimit.NewRedis(a.redis.Client)
	}
	return ratelimit.NewWindow()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// ready reports whether every configured backing store answers.
func (a *app) ready(ctx context.Context) map[string]string {
	checks := map[string]string{"storage": a.storage}
	if a.db != nil {
		checks["postgres"] = status(a.db.PingContext(ctx))
	}
	if a.redis != nil {
		checks["redis"] = status(a.redis.Health(ctx))
	}
	if a.kafka != nil {
		checks["kafka"] = status(a.kafka.Ping(ctx))
	}
	return checks
}

func status(err error) string {
	if err != nil {
		return "down: " + err.Error()
	}
	return "up"
}
