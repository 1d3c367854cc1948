package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anima/internal/bridge"
)

type captureWriter struct {
	frames []bridge.Frame
	err    error
}

func (w *captureWriter) WriteFrame(f bridge.Frame) error {
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, f)
	return nil
}

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestProcCollectEmitsTaggedFrames(t *testing.T) {
	p := NewProc()
	p.StatPath = writeFixture(t, "stat", "cpu  120 0 80 9000 10 0 5 0 0 0\ncpu0 60 0 40\n")
	p.MeminfoPath = writeFixture(t, "meminfo", "MemTotal:  8000000 kB\nMemFree: 100 kB\nMemAvailable: 4000000 kB\n")

	frames, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames: %d", len(frames))
	}
	if frames[0].Source != bridge.SourceProc || frames[0].Subtype != bridge.ProcCPU {
		t.Fatalf("cpu frame tags: %d/%d", frames[0].Source, frames[0].Subtype)
	}
	if !strings.HasPrefix(frames[0].Text(), "proc:cpu cpu ") {
		t.Fatalf("cpu payload: %q", frames[0].Text())
	}
	if !strings.HasPrefix(frames[1].Text(), "proc:mem MemTotal: 8000000 kB") {
		t.Fatalf("mem payload: %q", frames[1].Text())
	}
	if frames[1].Timestamp < frames[0].Timestamp {
		t.Fatal("timestamps went backwards within one collector")
	}
}

func TestProcCollectErrorsWithoutProcfs(t *testing.T) {
	p := NewProc()
	p.StatPath = filepath.Join(t.TempDir(), "missing")
	p.MeminfoPath = p.StatPath
	if _, err := p.Collect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNetCollectSummarizesInterfaces(t *testing.T) {
	body := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:   50000     100    0    0    0     0          0         0    50000     100    0    0    0     0       0          0
  eth0: 1000000    2000    0    0    0     0          0         0   500000    1500    0    0    0     0       0          0
 wlan0:  200000     400    0    0    0     0          0         0   100000     300    0    0    0     0       0          0
`
	n := NewNet()
	n.DevPath = writeFixture(t, "dev", body)

	frames, err := n.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("frames: %d", len(frames))
	}
	want := "net:stats ifaces=2 rx_bytes=1200000 tx_bytes=600000"
	if frames[0].Text() != want {
		t.Fatalf("payload: %q, want %q", frames[0].Text(), want)
	}
}

func TestLogCollectTailsFromLastOffset(t *testing.T) {
	path := writeFixture(t, "syslog", "line one\nline two\n")
	l := NewLog(path, bridge.LogJournal)

	frames, err := l.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames: %d", len(frames))
	}
	if frames[0].Text() != "log:journal line one" {
		t.Fatalf("payload: %q", frames[0].Text())
	}

	// Nothing new: no frames.
	frames, err = l.Collect(context.Background())
	if err != nil || len(frames) != 0 {
		t.Fatalf("idle collect: %v, %d frames", err, len(frames))
	}

	// Appended lines only.
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	f.WriteString("line three\n")
	f.Close()
	frames, err = l.Collect(context.Background())
	if err != nil || len(frames) != 1 {
		t.Fatalf("tail collect: %v, %d frames", err, len(frames))
	}
	if frames[0].Text() != "log:journal line three" {
		t.Fatalf("payload: %q", frames[0].Text())
	}

	// Rotation resets the offset.
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	frames, err = l.Collect(context.Background())
	if err != nil || len(frames) != 1 || frames[0].Text() != "log:journal fresh" {
		t.Fatalf("after rotation: %v, %+v", err, frames)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	p := NewProc()
	p.StatPath = writeFixture(t, "stat", "cpu 1 2 3\n")
	p.MeminfoPath = p.StatPath
	p.Cadence = time.Millisecond

	w := &captureWriter{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Run(ctx, p, w)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run: %v", err)
	}
	if len(w.frames) == 0 {
		t.Fatal("no frames emitted before shutdown")
	}
}

func TestRunSurvivesWriteFailures(t *testing.T) {
	// A transport failure aborts the poll cycle but not the collector loop.
	p := NewProc()
	p.StatPath = writeFixture(t, "stat", "cpu 1 2 3\n")
	p.MeminfoPath = p.StatPath
	p.Cadence = time.Millisecond

	w := &captureWriter{err: errors.New("ring unavailable")}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := Run(ctx, p, w); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run ended early: %v", err)
	}
}
