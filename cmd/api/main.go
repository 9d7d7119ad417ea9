package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/config"
	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/httpapi"
	"brooks.social/pins/internal/lists"
	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/pin"
	"brooks.social/pins/internal/remote"
	"brooks.social/pins/internal/social"
	"brooks.social/pins/internal/store/pg"
)

var version = "0.3.1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	obs.SetupLog(cfg.ServiceName, cfg.Verbose)
	obs.Init()

	var (
		pinStore    pin.Store
		aclStore    pin.ACLStore
		unlockStore pin.UnlockStore
		ready       httpapi.ReadyProbe
		closeStore  func() error
	)
	if cfg.PostgresDSN != "" {
		store, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("open postgres")
		}
		pinStore, aclStore, unlockStore = store, store, store
		ready = httpapi.ReadyProbe{Ping: store.Ping}
		closeStore = store.Close
	} else {
		log.Warn("no PINS_PG_DSN configured, using in-memory store")
		mem := pin.NewInMemory()
		pinStore, aclStore, unlockStore = mem, mem, mem
		ready = httpapi.ReadyProbe{}
		closeStore = func() error { return nil }
	}

	httpClient := &http.Client{Timeout: cfg.CollaboratorTimeout + time.Second}

	socialSrc := social.NewResilient(
		social.NewClient(cfg.SocialBaseURL, cfg.ServiceName, cfg.ServiceKey, httpClient),
		remote.NewCaller(remote.Config{
			Name:       "social",
			Timeout:    cfg.CollaboratorTimeout,
			MaxRetries: cfg.CollaboratorRetries,
			BaseDelay:  100 * time.Millisecond,
			OpenAfter:  5,
			Cooldown:   30 * time.Second,
		}),
		4096, cfg.GraphViewCacheTTL,
	)
	listsSrc := lists.NewResilient(
		lists.NewClient(cfg.ListsBaseURL, cfg.ServiceName, cfg.ServiceKey, httpClient),
		remote.NewCaller(remote.Config{
			Name:       "lists",
			Timeout:    cfg.CollaboratorTimeout,
			MaxRetries: cfg.CollaboratorRetries,
			BaseDelay:  100 * time.Millisecond,
			OpenAfter:  5,
			Cooldown:   30 * time.Second,
		}),
		4096, cfg.MembershipCacheTTL,
	)

	grid := geo.NewGrid(cfg.BucketSizeDeg)
	evaluator := pin.NewEvaluator(aclStore, socialSrc, listsSrc)
	proximity := pin.NewProximity(pinStore, evaluator, grid)
	service := pin.NewService(pinStore, aclStore, unlockStore, evaluator, proximity, grid)

	api := httpapi.New(service, ready, []byte(cfg.AuthSecret), version)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(log.Fields{"addr": srv.Addr, "version": version}).Info("starting pins-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = closeStore()
	log.Info("stopped")
}
