package main

import (
	"Go2NetBandwidth/internal/api"
	"Go2NetBandwidth/internal/capture"
	"Go2NetBandwidth/internal/capture/live"
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/dumper"
	"Go2NetBandwidth/internal/engine/manager"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/probe"
	"Go2NetBandwidth/internal/query"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	mode := flag.String("mode", "capture", "run mode: capture or sub")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "capture":
		// 1. Load configuration
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Println("Configuration loaded successfully.")
		runCapture(ctx, cfg)
	case "sub":
		natsCfg, err := config.LoadNATSConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		runSubscriber(ctx, natsCfg)
	default:
		log.Fatalf("Unknown mode '%s', expected capture or sub", *mode)
	}
}

func runCapture(ctx context.Context, cfg *config.Config) {
	log.Println("Starting ns-bandwidth...")

	// 2. Open the capture source
	var source capture.Source
	var err error
	if cfg.Capture.PcapFile != "" {
		source, err = live.OpenOffline(cfg.Capture.PcapFile, cfg.Capture.Filter)
	} else {
		source, err = live.Open(cfg.Capture)
	}
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}

	// 3. Build classifier, aggregator and dumpers
	m, err := manager.NewManager(cfg, source)
	if err != nil {
		source.Close()
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer m.Close()

	// 4. Start the API if enabled
	if cfg.API.Enabled {
		querier, err := query.FromConfig(cfg)
		if err != nil {
			log.Printf("History queries disabled: %v", err)
		}
		if querier != nil {
			defer querier.Close()
		}

		handler := api.NewHandler(m.Latest(), m.Aggregator(), m.Classifier(), querier)
		server := api.NewServer(cfg.API, handler.Router())
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start API server: %v", err)
		}
		defer server.Shutdown()
		server.SetServing(true)
	}

	// 5. Run until a shutdown signal or the end of an offline capture
	if err := m.Run(ctx); err != nil {
		log.Printf("Capture stopped with error: %v", err)
	}
	stats := m.Stats()
	log.Printf("Processed %d packets, skipped %d, flushed %d times.", stats.Processed, stats.Skipped, stats.Flushes)
	log.Println("Shutdown complete.")
}

func runSubscriber(ctx context.Context, natsCfg config.NATSConfig) {
	sub, err := probe.NewSubscriber(natsCfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Start(func(snapshot *model.Snapshot) {
		if err := dumper.WriteSnapshot(os.Stdout, snapshot); err != nil {
			log.Printf("Error printing snapshot: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	log.Println("Waiting for snapshots, press Ctrl+C to exit.")

	<-ctx.Done()
	log.Println("Shutting down subscriber...")
}
