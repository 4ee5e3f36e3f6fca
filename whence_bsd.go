//go:build dragonfly || freebsd || netbsd || solaris

package sparse

// The BSDs and Solaris share the original Solaris values.
const (
	seekData = 3
	seekHole = 4
)
