package protocol

import (
	"Go2NetBandwidth/internal/model"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	// ErrNotIPv4 is returned for frames whose network header is not IPv4.
	ErrNotIPv4 = errors.New("not an IPv4 packet")
	// ErrTruncated is returned when a frame is too short to hold an IPv4 header.
	ErrTruncated = errors.New("truncated IPv4 header")
)

const minIPv4HeaderLen = 20

// LinkHeaderLen returns the fixed link-layer header size for a link type.
func LinkHeaderLen(linkType layers.LinkType) (int, error) {
	switch linkType {
	case layers.LinkTypeEthernet:
		return 14, nil
	case layers.LinkTypeLinuxSLL:
		return 16, nil
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		return 4, nil
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported link type %s", linkType)
	}
}

// ParseIPv4 strips a fixed-size link-layer header from frame and decodes the IPv4 header behind it.
func ParseIPv4(frame []byte, linkHeaderLen int) (*model.IPHeader, error) {
	if len(frame) <= linkHeaderLen {
		return nil, ErrTruncated
	}
	data := frame[linkHeaderLen:]
	if data[0]>>4 != 4 {
		return nil, ErrNotIPv4
	}
	if len(data) < minIPv4HeaderLen {
		return nil, ErrTruncated
	}

	var ip layers.IPv4
	if err := ip.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	// DecodeFromBytes aliases the frame; copy the addresses out as integers.
	src, _ := model.AddrFromIP(ip.SrcIP)
	dst, _ := model.AddrFromIP(ip.DstIP)

	return &model.IPHeader{
		Version:  ip.Version,
		Protocol: uint8(ip.Protocol),
		Src:      src,
		Dst:      dst,
		Length:   ip.Length,
	}, nil
}
