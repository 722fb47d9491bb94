package main

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/dumper"
	"Go2NetBandwidth/internal/engine/manager"
	"Go2NetBandwidth/pkg/pcap"
	"context"
	"fmt"
	"log"
	"os"
)

func main() {
	// 1. Get config and pcap file paths from command-line arguments
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run ./cmd/pcap-analyzer/main.go <config.yaml> <path_to_pcap_file>")
		os.Exit(1)
	}
	configPath, pcapFilePath := os.Args[1], os.Args[2]

	// 2. Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 3. Open the pcap file; no libpcap needed
	pcapReader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// 4. Initialize modules; the replay always ends with one dump to stdout
	m, err := manager.NewManager(cfg, pcapReader, dumper.NewConsoleDumper(os.Stdout))
	if err != nil {
		pcapReader.Close()
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer m.Close()
	log.Println("Manager initialized.")

	// 5. Replay the whole file
	if err := m.Run(context.Background()); err != nil {
		log.Printf("Replay stopped with error: %v", err)
	}
	stats := m.Stats()
	log.Printf("Finished reading all packets: %d processed, %d skipped.", stats.Processed, stats.Skipped)
}
