//go:build !unix

package storage

import "os"

func mapFile(*os.File, int, bool) (DataPtr, error) {
	return DataPtr{}, ErrMmapNotSupported
}
