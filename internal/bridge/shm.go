package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Well-known region names under the shared-memory directory. The engine
// creates both; collectors and consumers attach.
const (
	DefaultDir   = "/dev/shm"
	InboundName  = "anima_rx"
	OutboundName = "anima_tx"
)

// ErrRegionUnavailable marks a missing or unready shared-memory region. For
// a process that requires the region this is fatal: the operator is told to
// start the engine first, and no automatic retry happens.
var ErrRegionUnavailable = errors.New("shared-memory region unavailable")

// Region is one mapped shared-memory file holding a ring.
type Region struct {
	path string
	data []byte
	ring *Ring
}

// CreateRegion creates (or resets) the named region, sizes it for capacity
// slots, and formats an empty ring. Engine side only.
func CreateRegion(path string, capacity uint32) (*Region, error) {
	size := RegionSize(capacity)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("create region %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("size region %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	// The mapping outlives the descriptor.
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("map region %s: %w", path, err)
	}
	ring, err := InitRing(data, capacity)
	if err != nil {
		unix.Munmap(data)
		return nil, err
	}
	return &Region{path: path, data: data, ring: ring}, nil
}

// AttachRegion maps an existing region read-write and validates its header.
func AttachRegion(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (start animad first)", ErrRegionUnavailable, path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat region %s: %w", path, err)
	}
	if info.Size() < int64(HeaderSize) {
		return nil, fmt.Errorf("%w: %s not initialized yet (start animad first)", ErrRegionUnavailable, path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map region %s: %w", path, err)
	}
	ring, err := AttachRing(data)
	if err != nil {
		unix.Munmap(data)
		return nil, err
	}
	return &Region{path: path, data: data, ring: ring}, nil
}

func (r *Region) Ring() *Ring { return r.ring }

func (r *Region) Path() string { return r.path }

// Close releases the mapping. Safe on every exit path, including after a
// partial failure; a second Close is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	r.ring = nil
	return err
}

// Unlink removes the backing file. The creator calls it on clean shutdown.
func (r *Region) Unlink() error {
	return os.Remove(r.path)
}

// RegionPath joins the shared-memory directory with a region name.
func RegionPath(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, name)
}
