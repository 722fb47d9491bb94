package capture

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const recorderBufferSize = 10000

type recordedFrame struct {
	ci   gopacket.CaptureInfo
	data []byte
}

// Recorder writes accepted frames to a pcap file from a background goroutine.
// Frames are dropped rather than blocking the capture loop when the buffer is full.
type Recorder struct {
	file    *os.File
	writer  *pcapgo.Writer
	frames  chan recordedFrame
	wg      sync.WaitGroup
	dropped uint64
}

// NewRecorder creates a timestamped pcap file under dir and starts the writer goroutine.
func NewRecorder(dir string, snapLen uint32, linkType layers.LinkType) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	filePath := filepath.Join(dir, time.Now().Format("2006-01-02_15-04-05")+".pcap")
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file '%s': %w", filePath, err)
	}

	writer := pcapgo.NewWriter(file)
	if err := writer.WriteFileHeader(snapLen, linkType); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap file header: %w", err)
	}

	r := &Recorder{
		file:   file,
		writer: writer,
		frames: make(chan recordedFrame, recorderBufferSize),
	}
	r.wg.Add(1)
	go r.run()

	log.Printf("Recording accepted frames to %s", filePath)
	return r, nil
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for f := range r.frames {
		if err := r.writer.WritePacket(f.ci, f.data); err != nil {
			log.Printf("Recorder: error writing packet: %v", err)
		}
	}
}

// Enqueue copies the frame and hands it to the writer goroutine.
func (r *Recorder) Enqueue(ci gopacket.CaptureInfo, data []byte) {
	frame := recordedFrame{ci: ci, data: append([]byte(nil), data...)}
	frame.ci.CaptureLength = len(frame.data)
	select {
	case r.frames <- frame:
	default:
		r.dropped++
	}
}

// Close drains pending frames and closes the file.
func (r *Recorder) Close() error {
	close(r.frames)
	r.wg.Wait()
	if r.dropped > 0 {
		log.Printf("Recorder: %d frames dropped because the buffer was full", r.dropped)
	}
	return r.file.Close()
}
