package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/CareTrack/config"
	"github.com/BearBump/CareTrack/internal/api/careapi"
	"github.com/BearBump/CareTrack/internal/auth"
	"github.com/BearBump/CareTrack/internal/broker/kafka"
	"github.com/BearBump/CareTrack/internal/cache/rediscache"
	"github.com/BearBump/CareTrack/internal/hub"
	"github.com/BearBump/CareTrack/internal/services/alerts"
	"github.com/BearBump/CareTrack/internal/services/ingest"
	"github.com/BearBump/CareTrack/internal/services/locations"
	"github.com/BearBump/CareTrack/internal/services/patients"
	"github.com/BearBump/CareTrack/internal/services/safezones"
	"github.com/BearBump/CareTrack/internal/storage/pgcare"
)

type careAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   careAPIOpts

	api    *careapi.API
	intake *kafka.FixIntake

	closeDB func()
}

func mustBootstrapCareAPI() *careAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config: %v", err))
	}

	httpAddr := cfg.CareTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	fixTopic := cfg.Kafka.LocationFixTopic
	if fixTopic == "" {
		fixTopic = "care.location.fix"
	}
	alertTopic := cfg.Kafka.AlertCreatedTopic
	if alertTopic == "" {
		alertTopic = "care.alert.created"
	}
	consumerGroup := cfg.Kafka.FixConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "care-api"
	}

	cacheTTL := time.Duration(cfg.CareTrack.LatestFixTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	h := hub.New(cfg.CareTrack.HubQueueSize)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	alertFeed := kafka.NewAlertFeed(producer, alertTopic)

	locSvc := locations.New(st, rc, cacheTTL)
	zoneSvc := safezones.New(st)
	patientSvc := patients.New(st)
	alertSvc := alerts.New(st, h, alerts.WithSink(alertFeed))
	access := auth.NewAccess(st)

	var pipelineOpts []ingest.Option
	if cfg.CareTrack.IngestRateLimitPerMinute > 0 {
		pipelineOpts = append(pipelineOpts, ingest.WithRateLimiter(rc.Limiter(), ingest.RateLimit{
			PerMinute: int64(cfg.CareTrack.IngestRateLimitPerMinute),
		}))
	}
	pipeline := ingest.New(locSvc, zoneSvc, st, alertSvc, h, nil, pipelineOpts...)

	api := careapi.New(patientSvc, zoneSvc, locSvc, alertSvc, pipeline, access, h, nil)

	consumer := kafka.NewConsumer(brokers, fixTopic, consumerGroup)
	intake := kafka.NewFixIntake(consumer, pipeline, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &careAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: careAPIOpts{
			httpAddr:      httpAddr,
			fixTopic:      fixTopic,
			consumerGroup: consumerGroup,
		},
		api:     api,
		intake:  intake,
		closeDB: st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcare.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcare.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *careAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.intake != nil {
		_ = a.intake.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *careAPIApp) Run() error {
	return runCareAPI(a.ctx, a.opts, a.api, a.intake)
}
