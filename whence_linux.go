package sparse

import "golang.org/x/sys/unix"

// Linux defines the sparse whence values in its headers; x/sys carries them.
const (
	seekData = unix.SEEK_DATA
	seekHole = unix.SEEK_HOLE
)
