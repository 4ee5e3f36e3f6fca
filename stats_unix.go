//go:build unix

package sparse

import (
	"os"
	"syscall"
)

func sizeStats(file *os.File) (apparent, allocated int64, err error) {
	fi, err := file.Stat()
	if err != nil {
		return 0, 0, err
	}
	apparent = fi.Size()

	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return apparent, apparent, nil
	}
	// st_blocks counts 512-byte units regardless of the filesystem block
	// size.
	return apparent, st.Blocks * 512, nil
}
