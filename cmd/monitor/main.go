package main

import (
	"context"
	"flag"
	"log"
	"os"

	"MarketLog/internal/di"
	"MarketLog/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	csvPath := flag.String("csv", "", "primary log to inspect (defaults to output.primary_csv)")
	listen := flag.String("listen", "", "serve /healthz, /api/status and /metrics on this address instead of exiting")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	path := *csvPath
	if path == "" {
		path = cfg.Output.PrimaryCSV
	}
	addr := *listen
	if addr == "" {
		addr = cfg.Monitor.Listen
	}

	app, err := di.InitializeMonitor(cfg)
	if err != nil {
		log.Fatalf("monitor initialization failed: %v", err)
	}

	if addr == "" {
		os.Exit(app.Check(path, os.Stdout))
	}

	if err := app.Serve(context.Background(), addr, path); err != nil {
		log.Printf("monitor server error: %v", err)
		os.Exit(1)
	}
}
