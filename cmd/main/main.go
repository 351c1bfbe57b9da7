package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"

	"flashbook-monitor/src/config"
	"flashbook-monitor/src/console"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/monitor"
	"flashbook-monitor/src/network"
	"flashbook-monitor/src/server"
	"flashbook-monitor/src/storage"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	noJournal := flag.Bool("no-journal", false, "disable the trade/stats/command journal")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg, cfg.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Monitor owns the store, the buffers and the event loop
	mon := monitor.NewMonitor(cfg.MConfig, logger.NewLogger(nil, "Monitor"))

	// 2. Journal
	var journal *storage.AsyncJournal
	var db interfaces.IJournal
	if !*noJournal {
		db, err = storage.NewJournal(cfg.MConfig, logger.NewLogger(nil, "Storage"))
		if err != nil {
			appLogger.Critical("Failed to init journal: %v", err)
		}
		if err := db.Initialize(); err != nil {
			appLogger.Critical("Failed to migrate journal: %v", err)
		}
		journal = storage.NewAsyncJournal(db, cfg.MConfig, logger.NewLogger(nil, "Journal"))
		mon.SetJournal(journal)
	}

	// 3. Exchange connection
	dialer := network.NewGorillaDialer(cfg.MConfig, logger.NewLogger(nil, "Dialer"))
	conn := network.NewConnectionManager(cfg.MConfig, dialer, utils.NewTimerScheduler(), mon, logger.NewLogger(nil, "Connection"))
	mon.Attach(conn)

	// 4. Render sinks
	srv := server.NewOperatorServer(cfg.MConfig, mon, logger.NewLogger(nil, "OperatorAPI"))
	srv.Journal = db
	mon.AddExchanger(srv)

	var sinks []interfaces.IDataExchanger
	sinks = append(sinks, srv)
	if cfg.Console.Enabled {
		con := console.NewConsole(cfg.MConfig, mon, logger.NewLogger(nil, "Console"))
		mon.AddExchanger(con)
		sinks = append(sinks, con)
	}

	// 5. Start everything
	var wg conc.WaitGroup
	if journal != nil {
		journal.Start(ctx)
	}
	mon.Start(ctx)

	for _, sink := range sinks {
		wg.Go(func() {
			if err := sink.Start(); err != nil {
				appLogger.Error("Render sink failed: %v", err)
				cancel()
			}
		})
	}

	appLogger.Info("Connecting to %s", cfg.Exchange.URL)
	if err := conn.Connect(ctx); err != nil {
		appLogger.Warning("Initial connect failed: %v", err)
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	// 6. Stop in reverse order
	conn.Close()
	for _, sink := range sinks {
		if err := sink.Stop(); err != nil {
			appLogger.Warning("Render sink stop: %v", err)
		}
	}
	wg.Wait()
	mon.Stop()
	if journal != nil {
		journal.Stop()
	}
	if db != nil {
		if err := db.Close(); err != nil {
			appLogger.Warning("Journal close: %v", err)
		}
	}
}
