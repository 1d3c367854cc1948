package collector

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"anima/internal/bridge"
)

// Log tails a system log file from the offset it last saw, emitting one
// frame per new line. Rotation (file shrinking) resets the offset.
type Log struct {
	Path    string
	Subtype uint8
	Cadence time.Duration

	offset int64
}

func NewLog(path string, subtype uint8) *Log {
	return &Log{Path: path, Subtype: subtype, Cadence: 3 * time.Second}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Interval() time.Duration {
	if l.Cadence <= 0 {
		return 3 * time.Second
	}
	return l.Cadence
}

func (l *Log) Collect(_ context.Context) ([]bridge.Frame, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < l.offset {
		l.offset = 0
	}
	if info.Size() == l.offset {
		return nil, nil
	}
	if _, err := f.Seek(l.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	l.offset = info.Size()

	tag := "log:journal "
	if l.Subtype == bridge.LogKernel {
		tag = "log:kernel "
	}
	var frames []bridge.Frame
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		frames = append(frames, bridge.TextFrame(bridge.SourceLog, l.Subtype,
			truncatePayload(tag+line)))
	}
	return frames, nil
}
