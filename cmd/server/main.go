package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rasaeats/api/internal/cache"
	"github.com/rasaeats/api/internal/config"
	"github.com/rasaeats/api/internal/router"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/service"
	"github.com/rasaeats/api/internal/store"
	"github.com/rasaeats/api/internal/worker"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer st.Close()

	// Redis is best effort. Without it reads fall through to Postgres.
	var mirror *cache.Cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unavailable, catalog cache disabled")
	} else {
		mirror = cache.New(rdb, st, cfg.CacheTTL)
		if err := mirror.Refresh(ctx); err != nil {
			logrus.WithError(err).Warn("initial cache refresh failed")
		}
	}

	seq := sequence.New(st)

	statusSvc := service.NewStatusService(st)
	settlementSvc := service.NewSettlementService(st, seq)
	svc := router.Services{
		Profiles:   service.NewProfileService(st, seq, cfg.StaffEmail),
		Orders:     service.NewOrderService(st, seq),
		Status:     statusSvc,
		Settlement: settlementSvc,
		Rewards:    service.NewRewardService(st, seq),
		Catalog:    service.NewCatalogService(st, seq, mirror),
		Tracker:    service.NewTracker(statusSvc, st, cfg.AutoReceiveDelay),
	}

	sweeper := worker.NewSweeper(st, settlementSvc)
	if err := sweeper.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start settlement sweeper")
	}
	defer sweeper.Stop()

	r := router.New(cfg, svc)

	logrus.WithField("port", cfg.Port).Info("starting server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
