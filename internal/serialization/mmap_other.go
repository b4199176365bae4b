//go:build !unix && !windows

package serialization

import (
	"io"
	"os"
)

// mmapFile reads the whole file on platforms without memory mapping.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

// munmapFile is a no-op for heap-backed "mappings".
func munmapFile([]byte) error {
	return nil
}
