package model

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// IP protocol numbers that get their own byte bucket.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// Addr is an IPv4 address in host byte order.
type Addr uint32

// AddrFromIP converts a net.IP into an Addr. It reports false for anything
// that is not an IPv4 (or IPv4-mapped) address.
func AddrFromIP(ip net.IP) (Addr, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return Addr(binary.BigEndian.Uint32(v4)), true
}

// ParseAddr parses a dotted-quad IPv4 address.
func ParseAddr(s string) (Addr, error) {
	addr, ok := AddrFromIP(net.ParseIP(s))
	if !ok {
		return 0, fmt.Errorf("invalid IPv4 address: %q", s)
	}
	return addr, nil
}

// IP returns the address as a 4-byte net.IP.
func (a Addr) IP() net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, uint32(a))
	return ip
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// IPHeader holds the fields of a decoded IPv4 header that the accounting needs.
type IPHeader struct {
	Version  uint8
	Protocol uint8
	Src      Addr
	Dst      Addr
	Length   uint16 // total-length field, host order
}

// TrafficSummary is the counter bundle kept for one direction class of a host.
type TrafficSummary struct {
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
	PacketCount   uint64 `json:"packet_count"`
	TCPBytes      uint64 `json:"tcp_bytes"`
	UDPBytes      uint64 `json:"udp_bytes"`
	ICMPBytes     uint64 `json:"icmp_bytes"`
}

// Record accounts a single packet against the summary.
// A packet whose source and destination are both this host counts as sent and received.
func (s *TrafficSummary) Record(isSource, isDest bool, length uint64, protocol uint8) {
	s.PacketCount++
	if isSource {
		s.BytesSent += length
	}
	if isDest {
		s.BytesReceived += length
	}
	switch protocol {
	case ProtoTCP:
		s.TCPBytes += length
	case ProtoUDP:
		s.UDPBytes += length
	case ProtoICMP:
		s.ICMPBytes += length
	}
}

// HostRecord is the accounting unit for one IPv4 address.
type HostRecord struct {
	Address  Addr           `json:"-"`
	Internal TrafficSummary `json:"internal"`
	External TrafficSummary `json:"external"`
}

// Snapshot is a point-in-time copy of all host records.
type Snapshot struct {
	Timestamp time.Time
	Hosts     []HostRecord
}
