package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"bufio"
	"fmt"
	"io"
	"os"
	"time"
)

func init() {
	factory.RegisterDumper("console", func(_ *config.Config, _ config.DumperDef) (model.Dumper, error) {
		return NewConsoleDumper(os.Stdout), nil
	})
}

// FormatHost renders one host in the reference line format.
func FormatHost(h model.HostRecord, ts time.Time) string {
	return fmt.Sprintf("IP=%s TIMESTAMP=%d INT_SENT=%d INT_RECV=%d INT_TCP=%d INT_UDP=%d INT_ICMP=%d EXT_SENT=%d EXT_RECV=%d EXT_TCP=%d EXT_UDP=%d EXT_ICMP=%d",
		h.Address, ts.Unix(),
		h.Internal.BytesSent, h.Internal.BytesReceived, h.Internal.TCPBytes, h.Internal.UDPBytes, h.Internal.ICMPBytes,
		h.External.BytesSent, h.External.BytesReceived, h.External.TCPBytes, h.External.UDPBytes, h.External.ICMPBytes,
	)
}

// WriteSnapshot writes one FormatHost line per host.
func WriteSnapshot(w io.Writer, snapshot *model.Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, h := range snapshot.Hosts {
		if _, err := fmt.Fprintln(bw, FormatHost(h, snapshot.Timestamp)); err != nil {
			return fmt.Errorf("failed to write host line: %w", err)
		}
	}
	return bw.Flush()
}

// ConsoleDumper prints every snapshot as plain text lines.
type ConsoleDumper struct {
	w io.Writer
}

// NewConsoleDumper creates a dumper writing to w.
func NewConsoleDumper(w io.Writer) *ConsoleDumper {
	return &ConsoleDumper{w: w}
}

func (d *ConsoleDumper) Name() string {
	return "console"
}

func (d *ConsoleDumper) Emit(snapshot *model.Snapshot) error {
	return WriteSnapshot(d.w, snapshot)
}
