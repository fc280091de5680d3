package video

import (
	"FootfallGolang/pkg/counter"
	"bufio"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marker is an event label anchored near the tracked object it belongs to.
type Marker struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// OverlayRecord carries everything needed to draw one annotated frame: the
// ROI line, markers for events fired on this frame and the running counts.
// Pixel rendering happens downstream; this sink only persists the overlays.
type OverlayRecord struct {
	FrameNumber int            `json:"frame_number"`
	Line        counter.Line   `json:"line"`
	Markers     []Marker       `json:"markers,omitempty"`
	Counts      counter.Counts `json:"counts"`
}

type ISink interface {
	WriteFrame(record OverlayRecord) error
	Close() error
}

type annotationWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func NewAnnotationWriter(path string) (ISink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation output %s: %w", path, err)
	}

	return &annotationWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *annotationWriter) WriteFrame(record OverlayRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if _, err := w.writer.Write(payload); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}

	return nil
}

func (w *annotationWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
