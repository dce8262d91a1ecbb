package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cntExplorer/explorer/aggregator"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	interval := flag.Duration("interval", 15*time.Second, "Update interval")
	flag.Parse()

	loadEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *interval <= 0 {
		*interval = cfg.Server.LiveInterval
	}
	logger, closer := logging.New(cfg.Log)
	defer closer.Close()

	agg := aggregator.NewMainAggregator(cfg, logger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		fmt.Println(line(cfg, agg.Dashboard(ctx)))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// loadEnv reads .env files into the environment. A missing file is not fatal.
func loadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("Info: Error loading .env file, relying on system environment variables:", err)
	}
}

// line renders one dashboard snapshot for the terminal.
func line(cfg *config.Config, d aggregator.Dashboard) string {
	ts := time.UnixMilli(d.TS).UTC().Format(time.RFC3339)
	if !d.Summary.OK {
		return fmt.Sprintf("%s %s explorer unavailable, price %s", ts, cfg.Asset.Symbol, price(d.Ticker.Price))
	}
	return fmt.Sprintf("%s %s price %s supply %.2f holders %d circulating %.2f txs %d",
		ts, cfg.Asset.Symbol, price(d.Ticker.Price), d.Summary.TotalSupply,
		d.Holders.TotalHolders, d.Holders.Circulating, d.Summary.TxCount)
}

func price(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.6f", *p)
}
