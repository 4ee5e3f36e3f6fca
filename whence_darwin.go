package sparse

// Apple does not document SEEK_HOLE/SEEK_DATA as public constants; the
// values come from xnu's sys/unistd.h. Note they are swapped relative to
// Linux and the BSDs.
const (
	seekHole = 3
	seekData = 4
)
