// Command cleanup removes pins whose expiry passed more than the retention
// period ago. Intended to run as a cron job or Kubernetes CronJob.
package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/config"
	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/pin"
	"brooks.social/pins/internal/store/pg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	obs.SetupLog(cfg.ServiceName+"-cleanup", cfg.Verbose)

	if cfg.PostgresDSN == "" {
		log.Fatal("PINS_PG_DSN is required")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("open postgres")
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	grid := geo.NewGrid(cfg.BucketSizeDeg)
	service := pin.NewService(store, store, store, nil, nil, grid)

	deleted, err := service.CleanupExpired(ctx, cfg.CleanupRetention, cfg.CleanupBatchSize)
	if err != nil {
		log.WithError(err).WithField("deleted", deleted).Fatal("cleanup aborted")
	}
	log.WithField("deleted", deleted).Info("cleanup finished")
}
