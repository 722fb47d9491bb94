package capture

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrTimeout is returned by a Source when no frame arrived within its read timeout.
var ErrTimeout = errors.New("capture read timeout")

// Source delivers captured frames one at a time.
// The returned slice is only valid until the next call.
type Source interface {
	ZeroCopyReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close()
}

// Stats are the drop counters reported by the capture backend.
type Stats struct {
	PacketsReceived  int
	PacketsDropped   int
	PacketsIfDropped int
}

// StatsSource is implemented by sources that can report kernel/library drop counters.
type StatsSource interface {
	Stats() (*Stats, error)
}
