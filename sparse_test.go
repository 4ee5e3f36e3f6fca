package sparse_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sparsefs/sparse"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "layout.raw"))
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

// sparseFixture makes a 1 MiB file with 4 KiB of data in the middle. Whether
// the filesystem stores the rest as holes is up to the filesystem.
func sparseFixture(t *testing.T) *os.File {
	t.Helper()
	f := tempFile(t)
	if err := f.Truncate(1 << 20); err != nil {
		t.Fatalf("truncating: %v", err)
	}
	data := bytes.Repeat([]byte{0xAB}, 4096)
	if _, err := f.WriteAt(data, 512<<10); err != nil {
		t.Fatalf("writing data block: %v", err)
	}
	return f
}

func fileSize(t *testing.T, f *os.File) int64 {
	t.Helper()
	fi, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return fi.Size()
}

// checkLayout drains a fresh range iterator and verifies the invariants that
// hold on every filesystem: ranges tile [0, size) without gaps or overlaps
// and alternate between data and hole.
func checkLayout(t *testing.T, f *os.File) []sparse.SparseRangeItem {
	t.Helper()
	ranges, err := sparse.Ranges(f)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}

	size := fileSize(t, f)
	if size == 0 {
		if len(ranges) != 0 {
			t.Fatalf("empty file should have no ranges, got %v", ranges)
		}
		return ranges
	}
	if len(ranges) == 0 {
		t.Fatalf("non-empty file should have at least one range")
	}
	if ranges[0].Start != 0 {
		t.Errorf("first range starts at %d, want 0", ranges[0].Start)
	}
	if last := ranges[len(ranges)-1]; last.End != size {
		t.Errorf("last range ends at %d, want file size %d", last.End, size)
	}
	for i, r := range ranges {
		if r.Start >= r.End {
			t.Errorf("range %d is empty or inverted: [%d, %d)", i, r.Start, r.End)
		}
		if i > 0 {
			if r.Start != ranges[i-1].End {
				t.Errorf("range %d starts at %d, previous ended at %d", i, r.Start, ranges[i-1].End)
			}
			if r.Kind == ranges[i-1].Kind {
				t.Errorf("ranges %d and %d are both %s", i-1, i, r.Kind)
			}
		}
	}
	return ranges
}

func TestEmptyFile(t *testing.T) {
	f := tempFile(t)

	it := sparse.NewIter(f)
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next on empty file should return io.EOF, got %v", err)
	}
	checkLayout(t, f)
}

func TestDenseFile(t *testing.T) {
	f := tempFile(t)
	if _, err := f.Write(bytes.Repeat([]byte{0xCD}, 128<<10)); err != nil {
		t.Fatalf("writing: %v", err)
	}

	ranges := checkLayout(t, f)

	var data int64
	for _, r := range ranges {
		if r.Kind == sparse.Data {
			data += r.Len()
		}
	}
	if data != 128<<10 {
		t.Errorf("data ranges cover %d bytes, want %d", data, 128<<10)
	}
}

func TestSparseFile(t *testing.T) {
	f := sparseFixture(t)

	ranges := checkLayout(t, f)

	// Every filesystem must account for the written block as data,
	// whatever it decides about the rest.
	const blockStart, blockEnd = 512 << 10, 512<<10 + 4096
	covered := false
	for _, r := range ranges {
		if r.Kind == sparse.Data && r.Start <= blockStart && blockEnd <= r.End {
			covered = true
		}
	}
	if !covered {
		t.Errorf("no data range covers the written block [%d, %d): %v", blockStart, blockEnd, ranges)
	}

	if len(ranges) > 1 {
		// The filesystem reported holes, so the file should also
		// occupy less disk than its apparent size.
		isSparse, err := sparse.IsSparse(f)
		if err != nil {
			t.Fatalf("IsSparse: %v", err)
		}
		if !isSparse {
			t.Errorf("file with reported holes should be sparse on disk")
		}
	}
}

func TestIterationIsRepeatable(t *testing.T) {
	f := sparseFixture(t)

	first, err := sparse.Ranges(f)
	if err != nil {
		t.Fatalf("first drain: %v", err)
	}
	second, err := sparse.Ranges(f)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two iterations over an unmodified file differ (-first +second):\n%s", diff)
	}
}

func TestIterPastEOF(t *testing.T) {
	f := sparseFixture(t)

	it := sparse.NewIterAt(f, fileSize(t, f)+10)
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next past EOF should return io.EOF, got %v", err)
	}
}

func TestExhaustionIsSticky(t *testing.T) {
	f := sparseFixture(t)

	it := sparse.NewRangeIter(f)
	for {
		if _, err := it.Next(); err != nil {
			if err != io.EOF {
				t.Fatalf("draining: %v", err)
			}
			break
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := it.Next(); err != io.EOF {
			t.Errorf("Next after exhaustion should return io.EOF, got %v", err)
		}
	}
}

func TestSupported(t *testing.T) {
	f := sparseFixture(t)

	// Supported must not be confused by filesystems that report the whole
	// file as one data region; it only goes false when the query itself
	// is rejected, and a regular file on the test filesystem must not do
	// that.
	if !sparse.Supported(f) {
		t.Errorf("Supported returned false for a regular file")
	}
}

func TestSizeStats(t *testing.T) {
	f := sparseFixture(t)

	apparent, allocated, err := sparse.SizeStats(f)
	if err != nil {
		t.Fatalf("SizeStats: %v", err)
	}
	if apparent != 1<<20 {
		t.Errorf("apparent size is %d, want %d", apparent, 1<<20)
	}
	if allocated < 0 {
		t.Errorf("allocated size is negative: %d", allocated)
	}
}
