package rvm

import (
	"os"

	"github.com/zeebo/xxh3"
)

// Checksum hashes the segment's current in-memory contents. It is a pure
// diagnostic: nothing in the on-disk log or data file format (§4.7)
// depends on it. TruncateLog does not use it; TruncateLog hashes each
// data file with checksumFile before and after folding its log and logs
// both values when they differ.
func (s *Segment) Checksum() uint64 {
	return xxh3.Hash(s.memory)
}

// checksumFile hashes the full current contents of f without disturbing
// its seek offset.
func checksumFile(f *os.File) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, info.Size())
	if info.Size() > 0 {
		if _, err := f.ReadAt(buf, 0); err != nil {
			return 0, err
		}
	}
	return xxh3.Hash(buf), nil
}
