package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cntExplorer/api"
	"cntExplorer/explorer/aggregator"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/logging"
	"cntExplorer/explorer/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("EXPLORER_CONFIG"), "Path to the YAML configuration file")
	flag.Parse()

	// Load .env file. Ignore error if file doesn't exist.
	if err := godotenv.Load(); err != nil {
		log.Println("Info: Error loading .env file, relying on system environment variables:", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closer := logging.New(cfg.Log)
	defer closer.Close()

	m := metrics.New("")
	agg := aggregator.NewMainAggregator(cfg, logger, m)
	server := api.NewServer(cfg, agg, logger, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
