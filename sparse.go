// Package sparse enumerates the data/hole layout of sparse files.
//
// A hole is a byte range the filesystem reports as implicitly zero-filled;
// it usually, but not necessarily, corresponds to blocks that were never
// allocated on disk. SparseIter walks a file and yields the offsets at which
// it alternates between data and holes. SparseRangeIter pairs those points
// into half-open [start, end) ranges. Backup and transfer tools can use the
// ranges to copy only the data extents of a file instead of reading through
// the zeroes.
//
// # Concurrent file access while iterating
//
// On most platforms iteration is implemented with seek-style calls that move
// the file's cursor. Do not assume the read/write position of the file is
// preserved across iteration steps; use ReadAt with the returned offsets
// rather than Read. Writing to the file while iterating may turn holes into
// data after they have already been reported, and truncation can make the
// iterator fail. Neither corrupts the iterator's own state, but the resulting
// sequence is unspecified and may differ between platforms and filesystems.
//
// # Portability
//
//   - On OpenZFS, hole reporting may lag behind writes unless the
//     zfs_dmu_offset_next_sync module parameter is set to 1.
//   - On macOS APFS, starting iteration in the middle of an extent may not
//     report that extent. Iterate from offset 0 or from an offset previously
//     returned by an iterator over the same file.
//   - On Windows, only files with the sparse attribute set have holes. A
//     non-sparse file is reported as a single data range, which is the
//     documented fallback and not an error.
//   - A filesystem may store runs of zero bytes as holes even though they
//     were explicitly written. Holes are not a record of which ranges were
//     never written to.
//   - Filesystems are never required to report zero ranges as holes. A file
//     reported as one big data range is always a valid answer.
package sparse

import (
	"errors"
	"os"
)

// ErrUnsupported is wrapped by errors returned when the platform or the
// filesystem backing a file cannot answer sparse-region queries at all.
// It is distinct from the everything-is-data fallback, which is a valid
// (if unhelpful) answer and produces no error.
var ErrUnsupported = errors.New("sparse region queries not supported")

// ItemKind distinguishes data regions from holes.
type ItemKind int

const (
	// Data marks a region the filesystem stores real bytes for. The bytes
	// may still all be zero.
	Data ItemKind = iota

	// Hole marks a region reported as implicitly zero-filled.
	Hole
)

func (k ItemKind) String() string {
	switch k {
	case Data:
		return "data"
	case Hole:
		return "hole"
	}
	return "unknown"
}

// flip returns the other kind.
func (k ItemKind) flip() ItemKind {
	if k == Data {
		return Hole
	}
	return Data
}

// SparseItem is a single transition point: starting at Offset the file is of
// kind Kind, until the next point.
type SparseItem struct {
	Kind   ItemKind
	Offset int64
}

// SparseRangeItem is a half-open byte range [Start, End) of a single kind,
// formed from two consecutive points.
type SparseRangeItem struct {
	Kind  ItemKind
	Start int64
	End   int64
}

// Len returns the length of the range in bytes.
func (r SparseRangeItem) Len() int64 {
	return r.End - r.Start
}

// Supported reports whether sparse-region queries work on file. It returns
// true on filesystems that merely report the whole file as one data region;
// that is a valid answer, not an unsupported platform.
//
// The probe may move the file's cursor.
func Supported(file *os.File) bool {
	_, err := osBackend.seekRegion(file, 0, Hole)
	return !errors.Is(err, ErrUnsupported)
}

// SizeStats returns the apparent size of the file and the number of bytes
// actually allocated for it on disk. For a sparse file the allocated size is
// smaller than the apparent size. On platforms without allocation reporting
// both values equal the apparent size.
func SizeStats(file *os.File) (apparent, allocated int64, err error) {
	return sizeStats(file)
}

// IsSparse reports whether the file occupies less space on disk than its
// apparent size, i.e. whether at least part of it is stored as holes.
func IsSparse(file *os.File) (bool, error) {
	apparent, allocated, err := sizeStats(file)
	if err != nil {
		return false, err
	}
	return allocated < apparent, nil
}
