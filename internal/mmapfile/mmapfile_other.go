//go:build !(darwin || linux || freebsd || openbsd || netbsd)

package mmapfile

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// openFile on unsupported platforms falls back to reading the whole
// file into a heap buffer. The mapping is still read-only for the
// lifetime of the owning Nonterminal/LookupTable; it simply forgoes
// the OS page-cache sharing a real mmap gets on platforms that support
// golang.org/x/sys/unix.
func openFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, syscall.EMFILE) || stderrors.Is(err, syscall.ENFILE) {
			return nil, &ResourceExhaustedError{Op: "open", Path: path, Limit: "open file descriptors (nofile)", cause: err}
		}
		return nil, errors.Wrapf(err, "mmapfile: read %s", path)
	}
	return &Mapping{Data: data, closer: func() error { return nil }}, nil
}
