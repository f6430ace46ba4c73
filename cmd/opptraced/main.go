package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"opptrace/internal/config"
	"opptrace/internal/daemon"
	"opptrace/internal/logging"
	"opptrace/internal/pipeline"
	"opptrace/internal/profilecache"
	"opptrace/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		logger.Error("open snapshot store", logging.Error(err))
		return
	}

	cache := profilecache.NewCache(cfg.ProfileCachePath(), logger)
	orch := pipeline.New(cfg, st, cache, buildFetcher(cfg), buildScorer(cfg), logger)

	d, err := daemon.New(cfg, st, cache, orch, buildMatcher(cfg), logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("opptraced shutting down")
}
