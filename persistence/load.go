package persistence

import (
	"bytes"
	"os"

	"github.com/hupe1980/coldb/internal/mmap"
)

// LoadSnapshot reads a store file. When useMmap is true the file is memory
// mapped and parsed out of the mapping; the snapshot owns copies of all
// data, so the mapping is released before returning either way.
func LoadSnapshot(path string, useMmap bool) (*Snapshot, error) {
	if useMmap {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		defer m.Close()
		_ = m.Advise(mmap.AccessSequential)
		return ReadSnapshot(bytes.NewReader(m.Bytes()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadSnapshot(bytes.NewReader(data))
}
