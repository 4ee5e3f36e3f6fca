package sparse

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// backend is the per-platform capability behind the iterators. Exactly one
// implementation is selected at build time (see sparse_unix.go,
// sparse_windows.go and sparse_fallback.go); tests substitute scripted ones.
type backend interface {
	// seekRegion returns the offset of the first region of the given kind
	// at or after offset. It returns io.EOF when no such region exists,
	// which for kind Data means the rest of the file (if any) is hole.
	// Errors wrapping ErrUnsupported indicate the file cannot answer
	// sparse queries at all.
	seekRegion(file *os.File, offset int64, kind ItemKind) (int64, error)

	// size returns the file's current apparent length.
	size(file *os.File) (int64, error)
}

// SparseIter iterates over the transition points of a file, alternating
// between the start of data regions and the start of holes.
//
// The iterator borrows the file: it never closes it and performs no reads,
// but advancing it may move the file's cursor. The file's layout is sampled
// lazily, one seek per step, so concurrent writes or truncation change the
// answer mid-iteration (see the package documentation).
type SparseIter struct {
	file *os.File
	be   backend

	offset  int64
	expect  ItemKind
	pending *SparseItem
	emitted bool
	done    bool
}

// NewIter returns an iterator over the transition points of file, starting
// at offset 0.
func NewIter(file *os.File) *SparseIter {
	return NewIterAt(file, 0)
}

// NewIterAt returns an iterator over the transition points of file at or
// after offset. On macOS APFS the offset should be 0 or an offset previously
// returned by an iterator over the same file; see the package documentation.
func NewIterAt(file *os.File, offset int64) *SparseIter {
	return &SparseIter{file: file, be: osBackend, offset: offset, expect: Data}
}

// Next returns the next transition point. It returns io.EOF when the file
// has no further points. Any other error is fatal to the iterator: it is
// returned once and every later call returns io.EOF without touching the
// file again.
func (it *SparseIter) Next() (SparseItem, error) {
	if it.done {
		return SparseItem{}, io.EOF
	}
	if it.pending != nil {
		item := *it.pending
		it.pending = nil
		return item, nil
	}
	if it.offset < 0 {
		return SparseItem{}, it.fail(fmt.Errorf("sparse: negative offset %d", it.offset))
	}

	off, err := it.be.seekRegion(it.file, it.offset, it.expect)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return SparseItem{}, it.fail(err)
		}
		if it.expect == Hole {
			// Every offset within the file has a hole at EOF at the
			// latest, so the query can only fail if the file shrank
			// under us.
			return SparseItem{}, it.fail(fmt.Errorf("sparse: no hole at or after offset %d (file truncated during iteration?)", it.offset))
		}
		return it.finishWithTrailingHole()
	}
	if off < it.offset {
		// Seen on APFS when iteration does not start at offset 0.
		return SparseItem{}, it.fail(fmt.Errorf("sparse: %s offset went backwards from %d to %d", it.expect, it.offset, off))
	}

	item := SparseItem{Kind: it.expect, Offset: off}
	if it.expect == Data && off > it.offset && !it.emitted {
		// The file begins (at our starting offset) inside a hole that
		// the alternation would otherwise skip. Report the hole first
		// and hold a copy of the data point for the next call.
		held := item
		it.pending = &held
		item = SparseItem{Kind: Hole, Offset: it.offset}
	}
	it.offset = off
	it.expect = it.expect.flip()
	it.emitted = true

	if item.Kind == Hole && it.pending == nil {
		// A hole at the apparent end of file is the terminal virtual
		// hole: nothing follows it.
		size, err := it.be.size(it.file)
		if err != nil {
			return SparseItem{}, it.fail(fmt.Errorf("sparse: querying file size: %w", err))
		}
		if off >= size {
			it.done = true
		}
	}
	return item, nil
}

// finishWithTrailingHole handles the no-more-data answer: everything from the
// current offset to EOF, if anything, is a single hole.
func (it *SparseIter) finishWithTrailingHole() (SparseItem, error) {
	size, err := it.be.size(it.file)
	if err != nil {
		return SparseItem{}, it.fail(fmt.Errorf("sparse: querying file size: %w", err))
	}
	it.done = true
	if !it.emitted && it.offset < size {
		it.emitted = true
		return SparseItem{Kind: Hole, Offset: it.offset}, nil
	}
	// Either the trailing hole's start was already reported, or the file
	// is empty and has no points at all.
	return SparseItem{}, io.EOF
}

// fail latches the iterator and surfaces err exactly once.
func (it *SparseIter) fail(err error) error {
	it.done = true
	return err
}

// SparseRangeIter adapts a SparseIter into contiguous [start, end) ranges of
// alternating kind. The emitted ranges tile the file from the iterator's
// starting offset to the end of the file with no gaps and no overlaps.
type SparseRangeIter struct {
	inner *SparseIter
	prev  *SparseItem
	done  bool
}

// NewRangeIter returns an iterator over the data and hole ranges of file,
// starting at offset 0.
func NewRangeIter(file *os.File) *SparseRangeIter {
	return &SparseRangeIter{inner: NewIter(file)}
}

// NewRangeIterAt returns an iterator over the data and hole ranges of file
// at or after offset. The first range starts at offset.
func NewRangeIterAt(file *os.File, offset int64) *SparseRangeIter {
	return &SparseRangeIter{inner: NewIterAt(file, offset)}
}

// Next returns the next range. It returns io.EOF when the file has no
// further ranges. Errors from the underlying point iterator are forwarded
// once, after which every call returns io.EOF.
func (it *SparseRangeIter) Next() (SparseRangeItem, error) {
	if it.done {
		return SparseRangeItem{}, io.EOF
	}
	for {
		if it.prev == nil {
			first, err := it.inner.Next()
			if err != nil {
				// io.EOF here means the file is empty: no points,
				// no ranges.
				it.done = true
				return SparseRangeItem{}, err
			}
			it.prev = &first
		}

		cur, err := it.inner.Next()
		if errors.Is(err, io.EOF) {
			return it.closeFinalRange()
		}
		if err != nil {
			it.done = true
			return SparseRangeItem{}, err
		}
		if cur.Offset == it.prev.Offset {
			// Zero-length ranges are never emitted. They can appear
			// when the file is modified between steps.
			it.prev = &cur
			continue
		}
		r := SparseRangeItem{Kind: it.prev.Kind, Start: it.prev.Offset, End: cur.Offset}
		it.prev = &cur
		return r, nil
	}
}

// closeFinalRange ends the buffered range at the file's current length. The
// point sequence carries no explicit end-of-file marker, so the length is
// queried independently here.
func (it *SparseRangeIter) closeFinalRange() (SparseRangeItem, error) {
	it.done = true
	size, err := it.inner.be.size(it.inner.file)
	if err != nil {
		return SparseRangeItem{}, fmt.Errorf("sparse: querying file size: %w", err)
	}
	if it.prev.Offset < size {
		return SparseRangeItem{Kind: it.prev.Kind, Start: it.prev.Offset, End: size}, nil
	}
	// The last point was the virtual zero-length hole at EOF.
	return SparseRangeItem{}, io.EOF
}

// Ranges drains a range iterator over the whole file and returns the
// collected ranges. An empty file yields a nil slice.
func Ranges(file *os.File) ([]SparseRangeItem, error) {
	var ranges []SparseRangeItem
	it := NewRangeIter(file)
	for {
		r, err := it.Next()
		if errors.Is(err, io.EOF) {
			return ranges, nil
		}
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
}
