package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	// HeaderSize is the shared ring header, padded to one cache line.
	HeaderSize = 64

	// stampSize is one sequence stamp. Each slot carries its frame bracketed
	// by two copies of the frame's sequence, written before and after the
	// payload, so a reader can tell that the slot it copied was overwritten
	// by a lapping writer mid-copy.
	stampSize = 8
	slotSize  = FrameSize + 2*stampSize

	ringMagic   uint32 = 0x414e4d41 // "ANMA"
	ringVersion uint32 = 2

	offMagic     = 0
	offVersion   = 4
	offCapacity  = 8
	offFrameSize = 12
	offWriteSeq  = 16
)

var (
	ErrBadRegion = errors.New("shared region header mismatch")
)

// Ring is a view over a mapped shared-memory region. The single writer owns
// writeSeq, a monotonically increasing frame sequence published atomically
// after the slot is fully written; slot index is seq modulo capacity. Readers
// never touch shared state: each owns an independent Cursor. The write policy
// is overwrite-oldest, so a slow or late reader observes bounded data loss,
// never a stall.
type Ring struct {
	region   []byte
	capacity uint64
	writeSeq *uint64
}

// RegionSize returns the byte size of a region holding capacity slots.
func RegionSize(capacity uint32) int {
	return HeaderSize + int(capacity)*slotSize
}

// InitRing formats region as an empty ring with the given slot capacity.
// Only the region's creator (the engine process) calls this.
func InitRing(region []byte, capacity uint32) (*Ring, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("ring capacity must be > 0")
	}
	if len(region) < RegionSize(capacity) {
		return nil, fmt.Errorf("region too small: %d < %d", len(region), RegionSize(capacity))
	}
	for i := range region[:RegionSize(capacity)] {
		region[i] = 0
	}
	binary.LittleEndian.PutUint32(region[offMagic:], ringMagic)
	binary.LittleEndian.PutUint32(region[offVersion:], ringVersion)
	binary.LittleEndian.PutUint32(region[offCapacity:], capacity)
	binary.LittleEndian.PutUint32(region[offFrameSize:], FrameSize)
	return newRing(region, capacity), nil
}

// AttachRing validates the header written by the creator and returns a view.
func AttachRing(region []byte) (*Ring, error) {
	if len(region) < HeaderSize {
		return nil, fmt.Errorf("%w: region shorter than header", ErrBadRegion)
	}
	if got := binary.LittleEndian.Uint32(region[offMagic:]); got != ringMagic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadRegion, got)
	}
	if got := binary.LittleEndian.Uint32(region[offVersion:]); got != ringVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadRegion, got)
	}
	if got := binary.LittleEndian.Uint32(region[offFrameSize:]); got != FrameSize {
		return nil, fmt.Errorf("%w: frame size %d", ErrBadRegion, got)
	}
	capacity := binary.LittleEndian.Uint32(region[offCapacity:])
	if capacity == 0 || len(region) < RegionSize(capacity) {
		return nil, fmt.Errorf("%w: capacity %d for %d bytes", ErrBadRegion, capacity, len(region))
	}
	return newRing(region, capacity), nil
}

func newRing(region []byte, capacity uint32) *Ring {
	return &Ring{
		region:   region,
		capacity: uint64(capacity),
		// The mapping is page aligned, so offset 16 is 8-byte aligned.
		writeSeq: (*uint64)(unsafe.Pointer(&region[offWriteSeq])),
	}
}

func (r *Ring) Capacity() uint32 {
	return uint32(r.capacity)
}

// WriteSeq is the total number of frames ever written.
func (r *Ring) WriteSeq() uint64 {
	return atomic.LoadUint64(r.writeSeq)
}

// Count is how many frames are currently held, saturating at capacity.
func (r *Ring) Count() uint32 {
	seq := r.WriteSeq()
	if seq > r.capacity {
		return uint32(r.capacity)
	}
	return uint32(seq)
}

func (r *Ring) slot(seq uint64) []byte {
	off := HeaderSize + int(seq%r.capacity)*slotSize
	return r.region[off : off+slotSize]
}

// WriteFrame publishes one frame, overwriting the oldest slot when full. The
// slot is stamped with its sequence before and after the frame bytes, then
// the shared sequence is bumped; a reader that copies a slot while it is
// being rewritten sees a stamp mismatch instead of torn bytes.
func (r *Ring) WriteFrame(f Frame) error {
	if len(f.Payload) > PayloadSize {
		return fmt.Errorf("payload %d exceeds capacity %d", len(f.Payload), PayloadSize)
	}
	seq := atomic.LoadUint64(r.writeSeq)
	s := r.slot(seq)
	binary.LittleEndian.PutUint64(s[:stampSize], seq)
	if err := marshalFrame(s[stampSize:slotSize-stampSize], f); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(s[slotSize-stampSize:], seq)
	atomic.StoreUint64(r.writeSeq, seq+1)
	return nil
}

// Cursor is a reader's private position: the next sequence it will read.
// Cursors live in the reader process, never in the shared header, so any
// number of consumers read the same ring at their own pace.
type Cursor struct {
	next uint64
}

// NewCursor starts a reader at the oldest frame still held. A reader that
// attaches after the writer has lapped its logical start simply begins at
// writeSeq − capacity and sees exactly the most recent frames.
func (r *Ring) NewCursor() *Cursor {
	seq := r.WriteSeq()
	start := uint64(0)
	if seq > r.capacity {
		start = seq - r.capacity
	}
	return &Cursor{next: start}
}

// Pending reports how many frames the cursor has not read yet, capped at
// capacity (anything beyond that is already lost to overwrite).
func (r *Ring) Pending(c *Cursor) uint64 {
	seq := r.WriteSeq()
	if c.next >= seq {
		return 0
	}
	pending := seq - c.next
	if pending > r.capacity {
		return r.capacity
	}
	return pending
}

// TryReadFrame returns the next frame for the cursor without blocking, or
// ok=false when the ring shows no new data. A lapped cursor jumps forward to
// the oldest live frame (bounded data loss, no crash). A slot whose declared
// length exceeds the payload capacity is dropped and the cursor still
// advances, so a corrupt record can never stall the ring.
func (r *Ring) TryReadFrame(c *Cursor) (Frame, bool) {
	for {
		seq := atomic.LoadUint64(r.writeSeq)
		if c.next >= seq {
			return Frame{}, false
		}
		if seq-c.next > r.capacity {
			c.next = seq - r.capacity
		}
		target := c.next

		var buf [slotSize]byte
		copy(buf[:], r.slot(target))

		// The stamps bracket the frame bytes. Any mismatch against the
		// expected sequence means a lapping writer rewrote this slot while
		// it was copied, published or not; the frame is already lost to the
		// overwrite, so skip it and resync against writeSeq next iteration.
		head := binary.LittleEndian.Uint64(buf[:stampSize])
		tail := binary.LittleEndian.Uint64(buf[slotSize-stampSize:])
		if head != target || tail != target {
			c.next = target + 1
			continue
		}

		c.next = target + 1
		frame, err := unmarshalFrame(buf[stampSize : slotSize-stampSize])
		if err != nil {
			continue
		}
		return frame, true
	}
}
