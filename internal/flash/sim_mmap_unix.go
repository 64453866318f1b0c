//go:build !tinygo && (linux || darwin)

package flash

import (
	"os"

	"golang.org/x/sys/unix"
)

// OpenMappedSim opens (creating if necessary) a file at path sized to
// addrSpace bytes, memory-maps it, and returns a Sim backed directly by
// the mapping. This makes flash contents visible to any other process
// inspecting the file and lets them persist across process restarts the
// same way real flash contents persist across MCU resets — bootctl uses
// this constructor for exactly that reason; the tests wrap in-memory
// slices with NewSim instead.
func OpenMappedSim(path string, addrSpace, segmentSize, bankSize uint32) (*Sim, func() error, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() < int64(addrSpace) {
		if err := f.Truncate(int64(addrSpace)); err != nil {
			return nil, nil, err
		}
		blank := make([]byte, addrSpace)
		for i := range blank {
			blank[i] = Erased
		}
		if _, err := f.WriteAt(blank, 0); err != nil {
			return nil, nil, err
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(addrSpace), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}

	sim := NewSim(mem, segmentSize, bankSize)
	closeFn := func() error { return unix.Munmap(mem) }
	return sim, closeFn, nil
}
