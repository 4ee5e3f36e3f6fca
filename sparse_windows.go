package sparse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FSCTL_QUERY_ALLOCATED_RANGES, from winioctl.h.
const queryAllocatedRanges = 0x000940CF

// FILE_ALLOCATED_RANGE_BUFFER. Used both as the query descriptor and as an
// element of the returned table.
type allocatedRange struct {
	fileOffset int64
	length     int64
}

// osBackend answers sparse queries by asking the filesystem for the table of
// allocated ranges and translating it into seek-style answers. Files without
// the sparse attribute come back as a single allocated range covering the
// whole file, so they are reported as one big data region.
var osBackend backend = windowsBackend{}

type windowsBackend struct{}

func (windowsBackend) seekRegion(file *os.File, offset int64, kind ItemKind) (int64, error) {
	size, err := fileSize(file)
	if err != nil {
		return 0, err
	}
	if offset > size || (offset == size && kind == Data) {
		return 0, io.EOF
	}
	if offset == size {
		// The virtual zero-length hole at end of file.
		return size, nil
	}

	// The table is consumed front to back; when it fills up
	// (ERROR_MORE_DATA) the query restarts past the consumed ranges.
	ranges := make([]allocatedRange, 64)
	for {
		query := allocatedRange{fileOffset: offset, length: size - offset}

		var bytesReturned uint32
		err := windows.DeviceIoControl(
			windows.Handle(file.Fd()), queryAllocatedRanges,
			(*byte)(unsafe.Pointer(&query)), uint32(unsafe.Sizeof(query)),
			(*byte)(unsafe.Pointer(&ranges[0])), uint32(len(ranges))*uint32(unsafe.Sizeof(ranges[0])),
			&bytesReturned, nil,
		)
		truncated := errors.Is(err, windows.ERROR_MORE_DATA)
		if err != nil && !truncated {
			if errors.Is(err, windows.ERROR_INVALID_FUNCTION) || errors.Is(err, windows.ERROR_NOT_SUPPORTED) {
				return 0, fmt.Errorf("querying allocated ranges: %w", ErrUnsupported)
			}
			return 0, fmt.Errorf("error querying allocated ranges: %w", err)
		}

		n := int(bytesReturned) / int(unsafe.Sizeof(ranges[0]))
		if kind == Data {
			if n == 0 {
				// Nothing allocated from offset to EOF.
				return 0, io.EOF
			}
			if first := ranges[0].fileOffset; first > offset {
				return first, nil
			}
			return offset, nil
		}

		// Hole: walk the table until a gap appears after offset.
		for _, r := range ranges[:n] {
			if offset < r.fileOffset {
				return offset, nil
			}
			if end := r.fileOffset + r.length; offset < end {
				offset = end
			}
		}
		if !truncated {
			if offset > size {
				// Allocation granularity can extend past EOF.
				offset = size
			}
			return offset, nil
		}
	}
}

func (windowsBackend) size(file *os.File) (int64, error) {
	return fileSize(file)
}

func fileSize(file *os.File) (int64, error) {
	fi, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
