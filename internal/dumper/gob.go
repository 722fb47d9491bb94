package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

func init() {
	factory.RegisterDumper("gob", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		if def.Gob.RootPath == "" {
			return nil, fmt.Errorf("gob.root_path is required")
		}
		return NewGobDumper(def.Gob.RootPath), nil
	})
}

// SummaryData holds the per-snapshot totals written next to the gob file.
type SummaryData struct {
	TotalHosts   int    `json:"total_hosts"`
	InternalSent uint64 `json:"internal_bytes_sent"`
	ExternalSent uint64 `json:"external_bytes_sent"`
	ExternalRecv uint64 `json:"external_bytes_received"`
	TotalPackets uint64 `json:"total_packets"`
	Timestamp    string `json:"timestamp"`
}

// GobDumper writes each snapshot as a gob-encoded map keyed by dotted-quad
// address, plus a summary.json, under <root>/<timestamp>/.
type GobDumper struct {
	rootPath string
}

// NewGobDumper creates a new gob dumper rooted at rootPath.
func NewGobDumper(rootPath string) *GobDumper {
	return &GobDumper{rootPath: rootPath}
}

func (d *GobDumper) Name() string {
	return "gob"
}

// Emit writes hosts.dat and summary.json. Empty snapshots produce no files.
func (d *GobDumper) Emit(snapshot *model.Snapshot) error {
	if len(snapshot.Hosts) == 0 {
		return nil
	}

	snapshotDir := filepath.Join(d.rootPath, snapshot.Timestamp.Format(snapshotDirLayout))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	hosts := make(map[string]model.HostRecord, len(snapshot.Hosts))
	summary := SummaryData{
		TotalHosts: len(snapshot.Hosts),
		Timestamp:  snapshot.Timestamp.UTC().Format(time.RFC3339),
	}
	for _, h := range snapshot.Hosts {
		hosts[h.Address.String()] = h
		summary.InternalSent += h.Internal.BytesSent
		summary.ExternalSent += h.External.BytesSent
		summary.ExternalRecv += h.External.BytesReceived
		summary.TotalPackets += h.Internal.PacketCount + h.External.PacketCount
	}

	filePath := filepath.Join(snapshotDir, "hosts.dat")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(hosts); err != nil {
		return fmt.Errorf("failed to encode hosts to gob for file '%s': %w", filePath, err)
	}

	summaryFilePath := filepath.Join(snapshotDir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}

// ReadGobSnapshot loads a snapshot directory written by GobDumper.
// The timestamp is taken from the directory name in local time.
func ReadGobSnapshot(snapshotDir string) (*model.Snapshot, error) {
	ts, err := time.ParseInLocation(snapshotDirLayout, filepath.Base(snapshotDir), time.Local)
	if err != nil {
		return nil, fmt.Errorf("directory name is not a snapshot timestamp: %w", err)
	}

	file, err := os.Open(filepath.Join(snapshotDir, "hosts.dat"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var hosts map[string]model.HostRecord
	if err := gob.NewDecoder(file).Decode(&hosts); err != nil {
		return nil, fmt.Errorf("failed to decode hosts: %w", err)
	}

	snapshot := &model.Snapshot{Timestamp: ts, Hosts: make([]model.HostRecord, 0, len(hosts))}
	for _, h := range hosts {
		snapshot.Hosts = append(snapshot.Hosts, h)
	}
	sort.Slice(snapshot.Hosts, func(i, j int) bool { return snapshot.Hosts[i].Address < snapshot.Hosts[j].Address })
	return snapshot, nil
}
