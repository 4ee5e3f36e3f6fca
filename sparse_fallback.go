//go:build !darwin && !dragonfly && !freebsd && !linux && !netbsd && !solaris && !windows

package sparse

import (
	"io"
	"os"
)

// osBackend for operating systems without a sparse query mechanism (OpenBSD
// among them). The whole file is reported as one data region, which is the
// documented fallback answer: correct, never an error, just never sparse.
var osBackend backend = fallbackBackend{}

type fallbackBackend struct{}

func (fallbackBackend) seekRegion(file *os.File, offset int64, kind ItemKind) (int64, error) {
	fi, err := file.Stat()
	if err != nil {
		return 0, err
	}
	size := fi.Size()

	if offset > size || (offset == size && kind == Data) {
		return 0, io.EOF
	}
	if kind == Data {
		return offset, nil
	}
	// The only hole is the virtual zero-length one at end of file.
	return size, nil
}

func (fallbackBackend) size(file *os.File) (int64, error) {
	fi, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
