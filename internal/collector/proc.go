package collector

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"anima/internal/bridge"
)

// Proc samples CPU and memory pressure from procfs. Paths are injectable so
// tests can point at fixtures.
type Proc struct {
	StatPath    string
	MeminfoPath string
	Cadence     time.Duration
}

func NewProc() *Proc {
	return &Proc{
		StatPath:    "/proc/stat",
		MeminfoPath: "/proc/meminfo",
		Cadence:     time.Second,
	}
}

func (p *Proc) Name() string { return "proc" }

func (p *Proc) Interval() time.Duration {
	if p.Cadence <= 0 {
		return time.Second
	}
	return p.Cadence
}

func (p *Proc) Collect(_ context.Context) ([]bridge.Frame, error) {
	var frames []bridge.Frame

	if line, err := firstLine(p.StatPath); err == nil && strings.HasPrefix(line, "cpu") {
		frames = append(frames, bridge.TextFrame(bridge.SourceProc, bridge.ProcCPU,
			truncatePayload("proc:cpu "+line)))
	}

	if fields, err := meminfoFields(p.MeminfoPath); err == nil && fields != "" {
		frames = append(frames, bridge.TextFrame(bridge.SourceProc, bridge.ProcMem,
			truncatePayload("proc:mem "+fields)))
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no procfs data at %s", p.StatPath)
	}
	return frames, nil
}

func firstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(string(data), '\n'); i >= 0 {
		return string(data[:i]), nil
	}
	return string(data), nil
}

// meminfoFields extracts the totals that matter for pressure signals.
func meminfoFields(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var picked []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "MemTotal:") || strings.HasPrefix(line, "MemAvailable:") {
			picked = append(picked, strings.Join(strings.Fields(line), " "))
		}
	}
	return strings.Join(picked, " "), nil
}
