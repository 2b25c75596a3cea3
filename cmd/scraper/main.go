package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/YatsauAliaksei/chain-scraper/internal/config"
	"github.com/YatsauAliaksei/chain-scraper/internal/docstore"
	"github.com/YatsauAliaksei/chain-scraper/internal/httpapi"
	"github.com/YatsauAliaksei/chain-scraper/internal/processor"
	"github.com/YatsauAliaksei/chain-scraper/internal/rpctransport"
	"github.com/YatsauAliaksei/chain-scraper/internal/scraper"
	"github.com/YatsauAliaksei/chain-scraper/internal/searchindex"
)

func main() {
	cfg := config.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		logrus.SetOutput(f)
	}

	logrus.Infof("starting with chain_url=%s mongo_url=%s elastic_url=%s listen_port=%d update_interval_sec=%d",
		cfg.ChainURL, cfg.MongoURL, cfg.ElasticURL, cfg.ListenPort, cfg.UpdateIntervalSec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("interrupt received, shutting down gracefully...")
		cancel()
	}()

	client, err := rpctransport.Dial(ctx, cfg.ChainURL, rpctransport.DefaultRetryConfig())
	if err != nil {
		log.Fatalf("failed to connect to chain rpc: %v", err)
	}

	store, err := docstore.Dial(ctx, cfg.MongoURL)
	if err != nil {
		log.Fatalf("failed to connect to document store: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		log.Fatalf("failed to initialise document store: %v", err)
	}

	index, err := searchindex.Dial(cfg.ElasticURL)
	if err != nil {
		log.Fatalf("failed to connect to search index: %v", err)
	}

	proc := processor.New(store, index)

	s := scraper.New(cfg.UpdateIntervalSec, client, store, proc)
	if err := s.Run(ctx); err != nil {
		log.Fatalf("failed to start scraper: %v", err)
	}

	server := httpapi.NewServer(proc)
	if err := server.Run(cfg.ListenPort); err != nil {
		log.Fatalf("http ingress stopped with error: %v", err)
	}
}
