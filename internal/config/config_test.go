package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
capture:
  device: eth0
internal_networks:
  - address: 10.0.0.0
    mask: 255.255.255.0
dumpers:
  - type: console
    enabled: true
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DumpInterval() != 600*time.Second {
		t.Errorf("Expected default dump interval 600s, got %s", cfg.DumpInterval())
	}
	if cfg.Capture.SnapshotLen != DefaultSnapshotLen {
		t.Errorf("Expected snapshot_len %d, got %d", DefaultSnapshotLen, cfg.Capture.SnapshotLen)
	}
	if cfg.Capture.Promiscuous == nil || !*cfg.Capture.Promiscuous {
		t.Errorf("Expected promiscuous mode to default to true")
	}
	if cfg.Capture.Timeout() != time.Second {
		t.Errorf("Expected read timeout 1s, got %s", cfg.Capture.Timeout())
	}
	if cfg.Capture.LinkHeaderLen != nil {
		t.Errorf("Expected link header length to be derived from the link type, got %d", *cfg.Capture.LinkHeaderLen)
	}
	if cfg.Capture.Filter != "ip" {
		t.Errorf("Expected filter 'ip', got %q", cfg.Capture.Filter)
	}
	if len(cfg.Dumpers) != 1 || cfg.Dumpers[0].Type != "console" || !cfg.Dumpers[0].Enabled {
		t.Errorf("Unexpected dumpers: %+v", cfg.Dumpers)
	}
}

func TestParse_MissingDevice(t *testing.T) {
	_, err := Parse([]byte(`
internal_networks:
  - address: 10.0.0.0
    mask: "24"
`))
	if !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Expected ErrNoDevice, got %v", err)
	}
}

func TestParse_MissingInternalNetworks(t *testing.T) {
	_, err := Parse([]byte(`
capture:
  device: eth0
`))
	if !errors.Is(err, ErrNoInternalNetworks) {
		t.Fatalf("Expected ErrNoInternalNetworks, got %v", err)
	}
}

func TestParse_DiscoveryReplacesStaticNetworks(t *testing.T) {
	cfg, err := Parse([]byte(`
capture:
  device: eth0
  link_header_len: 0
discover_internal_networks: true
dump_interval_seconds: 30
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.DumpInterval() != 30*time.Second {
		t.Errorf("Expected 30s interval, got %s", cfg.DumpInterval())
	}
	if cfg.Capture.LinkHeaderLen == nil || *cfg.Capture.LinkHeaderLen != 0 {
		t.Errorf("Expected explicit link header length 0, got %v", cfg.Capture.LinkHeaderLen)
	}
}

func TestParse_InvalidNetwork(t *testing.T) {
	_, err := Parse([]byte(`
capture:
  device: eth0
internal_networks:
  - address: 10.0.0.0
    mask: 255.255.0
`))
	if err == nil {
		t.Fatal("Expected error for malformed mask")
	}
}

func TestNetworkDef_Parse(t *testing.T) {
	tests := []struct {
		def      NetworkDef
		wantAddr string
		wantMask string
		wantErr  bool
	}{
		{NetworkDef{"10.0.0.0", "255.255.255.0"}, "10.0.0.0", "255.255.255.0", false},
		{NetworkDef{"192.168.1.7", "16"}, "192.168.1.7", "255.255.0.0", false},
		{NetworkDef{"172.16.0.0", "/12"}, "172.16.0.0", "255.240.0.0", false},
		{NetworkDef{"0.0.0.0", "0"}, "0.0.0.0", "0.0.0.0", false},
		{NetworkDef{"10.0.0.0", "33"}, "", "", true},
		{NetworkDef{"fe80::1", "64"}, "", "", true},
	}

	for _, tt := range tests {
		addr, mask, err := tt.def.Parse()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%+v) expected error", tt.def)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%+v) unexpected error: %v", tt.def, err)
			continue
		}
		if addr.String() != tt.wantAddr || mask.String() != tt.wantMask {
			t.Errorf("Parse(%+v) = %s/%s, want %s/%s", tt.def, addr, mask, tt.wantAddr, tt.wantMask)
		}
	}
}

func TestLoadNATSConfig_IgnoresCaptureSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
dumpers:
  - type: console
    enabled: true
  - type: nats
    enabled: false
    nats:
      url: nats://broker:4222
      subject: office.bandwidth
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Expected capture config to be rejected, got %v", err)
	}

	natsCfg, err := LoadNATSConfig(path)
	if err != nil {
		t.Fatalf("LoadNATSConfig failed: %v", err)
	}
	want := NATSConfig{URL: "nats://broker:4222", Subject: "office.bandwidth"}
	if natsCfg != want {
		t.Errorf("Expected %+v, got %+v", want, natsCfg)
	}
}

func TestLoadNATSConfig_NoNATSBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dump_interval_seconds: 60\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	natsCfg, err := LoadNATSConfig(path)
	if err != nil {
		t.Fatalf("LoadNATSConfig failed: %v", err)
	}
	if natsCfg != (NATSConfig{}) {
		t.Errorf("Expected zero NATS config, got %+v", natsCfg)
	}
}

func TestSQLiteConfig_DatabasePath(t *testing.T) {
	if got := (SQLiteConfig{}).DatabasePath(); got != DefaultSQLitePath {
		t.Errorf("Expected default path %s, got %s", DefaultSQLitePath, got)
	}
	if got := (SQLiteConfig{Path: "/var/lib/bw.db"}).DatabasePath(); got != "/var/lib/bw.db" {
		t.Errorf("Expected configured path, got %s", got)
	}
}
