package live

import (
	"Go2NetBandwidth/internal/capture"
	"Go2NetBandwidth/internal/config"
	"fmt"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Source is a libpcap capture handle implementing capture.Source.
type Source struct {
	handle *pcap.Handle
}

// Open opens the configured device for live capture and installs the coarse IPv4 filter.
func Open(cfg config.CaptureConfig) (*Source, error) {
	if err := capture.CheckDevice(cfg.Device); err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", cfg.Device, err)
	}

	inactive, err := pcap.NewInactiveHandle(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("interface '%s': failed to create inactive handle: %w", cfg.Device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(int(cfg.SnapshotLen)); err != nil {
		return nil, fmt.Errorf("interface '%s': failed to set snapshot length: %w", cfg.Device, err)
	}
	if err := inactive.SetPromisc(cfg.Promiscuous != nil && *cfg.Promiscuous); err != nil {
		return nil, fmt.Errorf("interface '%s': failed to set promiscuous mode: %w", cfg.Device, err)
	}
	if err := inactive.SetTimeout(cfg.Timeout()); err != nil {
		return nil, fmt.Errorf("interface '%s': failed to set read timeout: %w", cfg.Device, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("interface '%s': failed to activate handle: %w", cfg.Device, err)
	}

	if err := handle.SetBPFFilter(cfg.Filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("interface '%s': failed to set bpf filter to %q: %w", cfg.Device, cfg.Filter, err)
	}

	log.Printf("Opened %s for live capture (snaplen %d, timeout %s, filter %q)", cfg.Device, cfg.SnapshotLen, cfg.Timeout(), cfg.Filter)
	return &Source{handle: handle}, nil
}

// OpenOffline replays a pcap file through the same filter as a live capture.
func OpenOffline(path, filter string) (*Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file '%s': %w", path, err)
	}
	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set bpf filter to %q: %w", filter, err)
	}
	return &Source{handle: handle}, nil
}

// ZeroCopyReadPacketData reads the next frame, mapping pcap read timeouts to capture.ErrTimeout.
func (s *Source) ZeroCopyReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, ci, capture.ErrTimeout
	}
	return data, ci, err
}

// LinkType returns the link type of the underlying handle.
func (s *Source) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

// Stats returns libpcap's receive and drop counters.
func (s *Source) Stats() (*capture.Stats, error) {
	stats, err := s.handle.Stats()
	if err != nil {
		return nil, err
	}
	return &capture.Stats{
		PacketsReceived:  stats.PacketsReceived,
		PacketsDropped:   stats.PacketsDropped,
		PacketsIfDropped: stats.PacketsIfDropped,
	}, nil
}

// Close closes the pcap handle.
func (s *Source) Close() {
	s.handle.Close()
}
