// Package bridge moves fixed-size frames between the engine process and
// independently running collector processes through shared-memory ring
// buffers. One writer per direction, any number of readers, each reader
// owning its own cursor.
package bridge

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// PayloadSize is the fixed payload buffer per frame.
	PayloadSize = 4096
	// FrameSize is the wire size of one slot: source, subtype, length,
	// timestamp, payload.
	FrameSize = 1 + 1 + 2 + 8 + PayloadSize
)

// Source categories for sensory frames.
const (
	SourceProc uint8 = iota + 1
	SourceSys
	SourceLog
	SourceNet
	SourceUser
	SourceCtrl
)

// Subtypes per source category.
const (
	ProcCPU uint8 = iota + 1
	ProcMem
	ProcList
)

const (
	NetStats uint8 = iota + 1
	NetTCP
)

const (
	LogJournal uint8 = iota + 1
	LogKernel
)

// Frame is one unit of sensory or output data. Payload holds at most
// PayloadSize bytes; Length on the wire is always validated against that
// bound before a frame is surfaced to callers.
type Frame struct {
	Source    uint8
	Subtype   uint8
	Timestamp uint64
	Payload   []byte
}

// TextFrame builds a frame with a UTF-8 text payload, stamped now.
func TextFrame(source, subtype uint8, text string) Frame {
	return Frame{
		Source:    source,
		Subtype:   subtype,
		Timestamp: TimestampNow(),
		Payload:   []byte(text),
	}
}

func (f Frame) Text() string {
	return string(f.Payload)
}

// TimestampNow returns monotonic microseconds since an arbitrary epoch.
var timestampEpoch = time.Now()

func TimestampNow() uint64 {
	return uint64(time.Since(timestampEpoch).Microseconds())
}

// marshalFrame encodes f into a slot buffer of at least FrameSize bytes.
func marshalFrame(dst []byte, f Frame) error {
	if len(f.Payload) > PayloadSize {
		return fmt.Errorf("payload %d exceeds capacity %d", len(f.Payload), PayloadSize)
	}
	dst[0] = f.Source
	dst[1] = f.Subtype
	binary.LittleEndian.PutUint16(dst[2:4], uint16(len(f.Payload)))
	binary.LittleEndian.PutUint64(dst[4:12], f.Timestamp)
	copy(dst[12:12+PayloadSize], f.Payload)
	// Zero the slack so a shorter frame never resurrects a prior payload.
	for i := 12 + len(f.Payload); i < 12+PayloadSize; i++ {
		dst[i] = 0
	}
	return nil
}

// unmarshalFrame decodes a slot. A declared length beyond the payload
// capacity is malformed and reported so the reader can drop the record.
func unmarshalFrame(src []byte) (Frame, error) {
	length := binary.LittleEndian.Uint16(src[2:4])
	if int(length) > PayloadSize {
		return Frame{}, fmt.Errorf("frame length %d exceeds payload capacity %d", length, PayloadSize)
	}
	payload := make([]byte, length)
	copy(payload, src[12:12+int(length)])
	return Frame{
		Source:    src[0],
		Subtype:   src[1],
		Timestamp: binary.LittleEndian.Uint64(src[4:12]),
		Payload:   payload,
	}, nil
}
