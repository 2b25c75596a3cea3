// Package config parses the process's command-line flags into a
// Config used to wire every other component together.
package config

import "flag"

// Config holds every value the scraper needs at startup.
type Config struct {
	ChainURL          string
	MongoURL          string
	ElasticURL        string
	LogFile           string
	ListenPort        uint
	UpdateIntervalSec uint64
}

// Parse reads the process's command-line flags into a Config,
// applying the same defaults as the original chain scraper: a local
// WebSocket node, a local MongoDB and Elasticsearch, port 8084, and a
// 60-second scrape interval.
func Parse() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ChainURL, "chain_url", "ws://localhost:8546", "EVM node RPC url (ws:// or http://)")
	flag.StringVar(&cfg.MongoURL, "mongo_url", "mongodb://localhost:27017", "MongoDB connection url")
	flag.StringVar(&cfg.ElasticURL, "elastic_url", "http://localhost:9200", "Elasticsearch url")
	flag.StringVar(&cfg.LogFile, "log_file", "", "path to write logs to; empty logs to stdout")
	port := flag.Uint("listen_port", 8084, "HTTP ingress listen port")
	interval := flag.Uint64("update_interval_sec", 60, "scraper pass interval, in seconds")

	flag.Parse()

	cfg.ListenPort = *port
	cfg.UpdateIntervalSec = *interval

	return cfg
}
