package manager

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/pkg/pcap"
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type collectDumper struct {
	snapshots []*model.Snapshot
}

func (d *collectDumper) Name() string { return "collect" }

func (d *collectDumper) Emit(s *model.Snapshot) error {
	d.snapshots = append(d.snapshots, s)
	return nil
}

type packet struct {
	src, dst string
	proto    layers.IPProtocol
	payload  int
}

func buildPcap(t *testing.T, linkType layers.LinkType, packets []packet) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(65536, linkType); err != nil {
		t.Fatalf("Failed to write pcap header: %v", err)
	}
	for i, p := range packets {
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: p.proto,
			SrcIP:    net.ParseIP(p.src).To4(),
			DstIP:    net.ParseIP(p.dst).To4(),
		}
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
			EthernetType: layers.EthernetTypeIPv4,
		}
		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true}
		if err := gopacket.SerializeLayers(sb, opts, eth, ip, gopacket.Payload(make([]byte, p.payload))); err != nil {
			t.Fatalf("Failed to serialize packet: %v", err)
		}
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(int64(1000+i), 0), CaptureLength: len(sb.Bytes()), Length: len(sb.Bytes())}
		if err := w.WritePacket(ci, sb.Bytes()); err != nil {
			t.Fatalf("Failed to write packet: %v", err)
		}
	}
	return &buf
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	return cfg
}

const baseConfig = `
capture:
  pcap_file: test.pcap
internal_networks:
  - address: 10.0.0.0
    mask: 255.255.255.0
  - address: 192.168.1.0
    mask: /24
`

func TestBuildClassifier(t *testing.T) {
	c, err := BuildClassifier(parseConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("BuildClassifier failed: %v", err)
	}
	if len(c.Networks()) != 2 {
		t.Fatalf("Expected 2 networks, got %d", len(c.Networks()))
	}
	inside, _ := model.ParseAddr("192.168.1.77")
	if !c.IsInternal(inside) {
		t.Error("192.168.1.77 should be internal")
	}
}

func TestBuildClassifier_DiscoveryWithoutDevice(t *testing.T) {
	cfg := parseConfig(t, `
capture:
  pcap_file: test.pcap
discover_internal_networks: true
`)
	if _, err := BuildClassifier(cfg); !errors.Is(err, config.ErrNoInternalNetworks) {
		t.Errorf("Expected ErrNoInternalNetworks, got %v", err)
	}
}

func TestResolveLinkHeaderLen(t *testing.T) {
	reader, err := pcap.NewStreamReader(buildPcap(t, layers.LinkTypeEthernet, nil))
	if err != nil {
		t.Fatalf("NewStreamReader failed: %v", err)
	}

	n, err := ResolveLinkHeaderLen(config.CaptureConfig{}, reader)
	if err != nil || n != 14 {
		t.Errorf("Expected 14 for Ethernet, got %d (%v)", n, err)
	}

	override := 0
	n, err = ResolveLinkHeaderLen(config.CaptureConfig{LinkHeaderLen: &override}, reader)
	if err != nil || n != 0 {
		t.Errorf("Expected explicit override 0, got %d (%v)", n, err)
	}
}

func TestManager_ReplaysPcap(t *testing.T) {
	buf := buildPcap(t, layers.LinkTypeEthernet, []packet{
		{"10.0.0.5", "8.8.8.8", layers.IPProtocolUDP, 40},
		{"8.8.8.8", "10.0.0.5", layers.IPProtocolUDP, 80},
		{"10.0.0.5", "192.168.1.9", layers.IPProtocolTCP, 0},
		{"1.1.1.1", "8.8.8.8", layers.IPProtocolICMPv4, 8},
	})
	reader, err := pcap.NewStreamReader(buf)
	if err != nil {
		t.Fatalf("NewStreamReader failed: %v", err)
	}

	collector := &collectDumper{}
	m, err := NewManager(parseConfig(t, baseConfig), reader, collector)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(collector.snapshots) != 1 {
		t.Fatalf("Expected a single final snapshot, got %d", len(collector.snapshots))
	}
	if m.Latest().Latest() != collector.snapshots[0] {
		t.Error("Memory dumper should hold the same snapshot")
	}

	hosts := collector.snapshots[0].Hosts
	if len(hosts) != 2 {
		t.Fatalf("Expected 2 internal hosts, got %d", len(hosts))
	}
	h := hosts[0] // 10.0.0.5
	if h.External.BytesSent != 60 || h.External.BytesReceived != 100 || h.External.UDPBytes != 160 {
		t.Errorf("Unexpected external summary for 10.0.0.5: %+v", h.External)
	}
	if h.Internal.BytesSent != 20 || h.Internal.TCPBytes != 20 {
		t.Errorf("Unexpected internal summary for 10.0.0.5: %+v", h.Internal)
	}
	if hosts[1].Internal.BytesReceived != 20 {
		t.Errorf("Unexpected internal summary for 192.168.1.9: %+v", hosts[1].Internal)
	}

	stats := m.Stats()
	if stats.Processed != 4 || stats.Flushes != 1 {
		t.Errorf("Unexpected loop stats: %+v", stats)
	}
}
