package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func tempRegion(t *testing.T, capacity uint32) *Region {
	t.Helper()
	region, err := CreateRegion(filepath.Join(t.TempDir(), "ring"), capacity)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() { region.Close() })
	return region
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	ring := tempRegion(t, 8).Ring()
	in := TextFrame(SourceNet, NetStats, "net:stats rx=10 tx=4")
	if err := ring.WriteFrame(in); err != nil {
		t.Fatalf("write: %v", err)
	}

	cursor := ring.NewCursor()
	out, ok := ring.TryReadFrame(cursor)
	if !ok {
		t.Fatal("expected a frame")
	}
	if out.Source != SourceNet || out.Subtype != NetStats {
		t.Fatalf("tags: %d/%d", out.Source, out.Subtype)
	}
	if out.Text() != in.Text() {
		t.Fatalf("payload: %q", out.Text())
	}
	if out.Timestamp != in.Timestamp {
		t.Fatalf("timestamp: %d != %d", out.Timestamp, in.Timestamp)
	}
}

func TestTryReadFrameEmptyIsNonBlocking(t *testing.T) {
	ring := tempRegion(t, 4).Ring()
	cursor := ring.NewCursor()
	if _, ok := ring.TryReadFrame(cursor); ok {
		t.Fatal("read from empty ring")
	}
}

func TestLateReaderSeesMostRecentCapacityFrames(t *testing.T) {
	// Writer pushes 1..N into a ring of capacity K < N with no reader
	// attached; a fresh reader then observes exactly the last K frames.
	const capacity, total = 4, 11
	ring := tempRegion(t, capacity).Ring()

	for i := 1; i <= total; i++ {
		if err := ring.WriteFrame(TextFrame(SourceProc, ProcCPU, fmt.Sprintf("proc:cpu %d", i))); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if got := ring.Count(); got != capacity {
		t.Fatalf("count: %d", got)
	}

	cursor := ring.NewCursor()
	var got []string
	for {
		frame, ok := ring.TryReadFrame(cursor)
		if !ok {
			break
		}
		got = append(got, frame.Text())
	}
	if len(got) != capacity {
		t.Fatalf("frames read: %d, want %d", len(got), capacity)
	}
	for i, text := range got {
		want := fmt.Sprintf("proc:cpu %d", total-capacity+1+i)
		if text != want {
			t.Fatalf("frame %d: %q, want %q", i, text, want)
		}
	}
}

func TestLappedCursorSkipsForward(t *testing.T) {
	const capacity = 4
	ring := tempRegion(t, capacity).Ring()

	ring.WriteFrame(TextFrame(SourceProc, ProcCPU, "proc:cpu 0"))
	cursor := ring.NewCursor()
	if _, ok := ring.TryReadFrame(cursor); !ok {
		t.Fatal("expected first frame")
	}

	// Writer laps the idle cursor several times over.
	for i := 1; i <= capacity*3; i++ {
		ring.WriteFrame(TextFrame(SourceProc, ProcCPU, fmt.Sprintf("proc:cpu %d", i)))
	}

	frame, ok := ring.TryReadFrame(cursor)
	if !ok {
		t.Fatal("lapped cursor returned nothing")
	}
	want := fmt.Sprintf("proc:cpu %d", capacity*3-capacity+1)
	if frame.Text() != want {
		t.Fatalf("lapped read: %q, want oldest live %q", frame.Text(), want)
	}
	if got := ring.Pending(cursor); got != capacity-1 {
		t.Fatalf("pending after lapped read: %d", got)
	}
}

func TestOversizedLengthFieldIsDroppedNotSurfaced(t *testing.T) {
	region := tempRegion(t, 4)
	ring := region.Ring()

	ring.WriteFrame(TextFrame(SourceLog, LogJournal, "log:journal a"))
	ring.WriteFrame(TextFrame(SourceLog, LogJournal, "log:journal b"))

	// Corrupt the first slot's length field in place, leaving the stamps
	// intact so only the frame decode rejects it.
	slot := region.data[HeaderSize : HeaderSize+slotSize]
	binary.LittleEndian.PutUint16(slot[stampSize+2:stampSize+4], PayloadSize+100)

	cursor := ring.NewCursor()
	frame, ok := ring.TryReadFrame(cursor)
	if !ok {
		t.Fatal("reader stalled on corrupt record")
	}
	if len(frame.Payload) > PayloadSize {
		t.Fatalf("surfaced oversized frame: %d bytes", len(frame.Payload))
	}
	if frame.Text() != "log:journal b" {
		t.Fatalf("expected the record after the dropped one, got %q", frame.Text())
	}
	if _, ok := ring.TryReadFrame(cursor); ok {
		t.Fatal("cursor did not advance past corrupt record")
	}
}

func TestUnpublishedOverwriteIsNotSurfacedAsOldFrame(t *testing.T) {
	// A reader lagging exactly capacity behind starts at the slot the writer
	// rewrites next. Simulate that writer mid-write: stamp and frame bytes
	// for the next lap are in the slot, but the sequence is not yet bumped.
	// The stale sequence the cursor expects there must not come back carrying
	// the new payload.
	const capacity = 4
	region := tempRegion(t, capacity)
	ring := region.Ring()

	for i := 0; i < 2*capacity; i++ {
		if err := ring.WriteFrame(TextFrame(SourceProc, ProcCPU, fmt.Sprintf("proc:cpu %d", i))); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	cursor := ring.NewCursor() // next = 4, one full lap behind seq 8

	slot := region.data[HeaderSize : HeaderSize+slotSize]
	binary.LittleEndian.PutUint64(slot[:stampSize], 2*capacity)
	if err := marshalFrame(slot[stampSize:slotSize-stampSize], TextFrame(SourceProc, ProcCPU, "proc:cpu 8")); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	frame, ok := ring.TryReadFrame(cursor)
	if !ok {
		t.Fatal("reader stalled on overwritten slot")
	}
	if frame.Text() == "proc:cpu 8" {
		t.Fatal("unpublished overwrite surfaced under the old sequence")
	}
	if frame.Text() != "proc:cpu 5" {
		t.Fatalf("expected the frame after the overwritten slot, got %q", frame.Text())
	}
}

func TestIndependentReadersKeepIndependentPace(t *testing.T) {
	ring := tempRegion(t, 8).Ring()
	for i := 0; i < 5; i++ {
		ring.WriteFrame(TextFrame(SourceSys, 1, fmt.Sprintf("sys:temp %d", i)))
	}

	fast := ring.NewCursor()
	slow := ring.NewCursor()
	for i := 0; i < 5; i++ {
		if _, ok := ring.TryReadFrame(fast); !ok {
			t.Fatalf("fast reader missing frame %d", i)
		}
	}
	frame, ok := ring.TryReadFrame(slow)
	if !ok {
		t.Fatal("slow reader starved by fast reader")
	}
	if frame.Text() != "sys:temp 0" {
		t.Fatalf("slow reader: %q", frame.Text())
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	ring := tempRegion(t, 2).Ring()
	err := ring.WriteFrame(Frame{Source: SourceUser, Payload: make([]byte, PayloadSize+1)})
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if got := ring.WriteSeq(); got != 0 {
		t.Fatalf("failed write advanced sequence: %d", got)
	}
}

func TestShortFrameDoesNotResurrectStalePayload(t *testing.T) {
	ring := tempRegion(t, 1).Ring()
	ring.WriteFrame(TextFrame(SourceUser, 1, "a long payload that fills the slot"))
	ring.WriteFrame(TextFrame(SourceUser, 1, "short"))

	cursor := ring.NewCursor()
	frame, ok := ring.TryReadFrame(cursor)
	if !ok {
		t.Fatal("expected frame")
	}
	if frame.Text() != "short" {
		t.Fatalf("stale bytes leaked: %q", frame.Text())
	}
}

func TestAttachRegionMissingIsFatalError(t *testing.T) {
	_, err := AttachRegion(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrRegionUnavailable) {
		t.Fatalf("expected ErrRegionUnavailable, got %v", err)
	}
}

func TestAttachRegionValidatesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ring")
	region, err := CreateRegion(path, 4)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer region.Close()

	attached, err := AttachRegion(path)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer attached.Close()
	if attached.Ring().Capacity() != 4 {
		t.Fatalf("capacity: %d", attached.Ring().Capacity())
	}

	// Attached view observes the creator's writes.
	region.Ring().WriteFrame(TextFrame(SourceCtrl, 1, "ctrl:ping"))
	cursor := attached.Ring().NewCursor()
	frame, ok := attached.Ring().TryReadFrame(cursor)
	if !ok || frame.Text() != "ctrl:ping" {
		t.Fatalf("cross-mapping read failed: ok=%v text=%q", ok, frame.Text())
	}

	// A region with a clobbered magic is rejected.
	region.data[0] = 0xFF
	if _, err := AttachRegion(path); !errors.Is(err, ErrBadRegion) {
		t.Fatalf("expected ErrBadRegion, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	region, err := CreateRegion(filepath.Join(t.TempDir(), "ring"), 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := region.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := region.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
