package collector

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"anima/internal/bridge"
)

// Net summarizes interface counters from /proc/net/dev into one stats frame.
type Net struct {
	DevPath string
	Cadence time.Duration
}

func NewNet() *Net {
	return &Net{DevPath: "/proc/net/dev", Cadence: 2 * time.Second}
}

func (n *Net) Name() string { return "net" }

func (n *Net) Interval() time.Duration {
	if n.Cadence <= 0 {
		return 2 * time.Second
	}
	return n.Cadence
}

func (n *Net) Collect(_ context.Context) ([]bridge.Frame, error) {
	data, err := os.ReadFile(n.DevPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", n.DevPath, err)
	}

	var rxTotal, txTotal uint64
	ifaces := 0
	for _, line := range strings.Split(string(data), "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || name == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			continue
		}
		rx, err1 := strconv.ParseUint(fields[0], 10, 64)
		tx, err2 := strconv.ParseUint(fields[8], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rxTotal += rx
		txTotal += tx
		ifaces++
	}

	text := fmt.Sprintf("net:stats ifaces=%d rx_bytes=%d tx_bytes=%d", ifaces, rxTotal, txTotal)
	return []bridge.Frame{
		bridge.TextFrame(bridge.SourceNet, bridge.NetStats, truncatePayload(text)),
	}, nil
}
