//go:build !tinygo && !linux && !darwin

package flash

import "os"

// OpenMappedSim provides the same API as sim_mmap_unix.go's version on
// platforms without mmap support: it reads the whole file into memory and
// writes it back when the returned close function runs.
func OpenMappedSim(path string, addrSpace, segmentSize, bankSize uint32) (*Sim, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, nil, err
		}
		data = make([]byte, addrSpace)
		for i := range data {
			data[i] = Erased
		}
	}
	if uint32(len(data)) < addrSpace {
		grown := make([]byte, addrSpace)
		copy(grown, data)
		for i := len(data); i < int(addrSpace); i++ {
			grown[i] = Erased
		}
		data = grown
	}

	sim := NewSim(data, segmentSize, bankSize)
	closeFn := func() error { return os.WriteFile(path, data, 0o644) }
	return sim, closeFn, nil
}
