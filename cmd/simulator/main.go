package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashbook-monitor/src/config"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/simulator"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file (roster only)")
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	tps := flag.Float64("rate", 4, "market ticks per second")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(cfg, "Simulator")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	market := simulator.NewMarket(cfg.Exchange.Roster, *seed)
	exchange := simulator.NewExchange(market, *tps, appLogger)
	if err := exchange.Serve(ctx, *addr); err != nil {
		appLogger.Critical("Exchange failed: %v", err)
	}
	appLogger.Info("Simulator stopped")
}
