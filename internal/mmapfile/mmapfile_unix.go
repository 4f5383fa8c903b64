//go:build darwin || linux || freebsd || openbsd || netbsd

package mmapfile

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// isOutOfResources reports whether err is the class of OS error a
// grammar/table load hits after exhausting a process-wide limit
// (open file descriptors or the mmap-count ceiling) rather than an
// ordinary missing-file or I/O error.
func isOutOfResources(err error) bool {
	return stderrors.Is(err, syscall.EMFILE) ||
		stderrors.Is(err, syscall.ENFILE) ||
		stderrors.Is(err, syscall.ENOMEM)
}

func openFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if isOutOfResources(err) {
			return nil, &ResourceExhaustedError{Op: "open", Path: path, Limit: "open file descriptors (nofile)", cause: err}
		}
		return nil, errors.Wrapf(err, "mmapfile: open %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "mmapfile: stat %s", path)
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{Data: nil, closer: func() error { return nil }}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		if isOutOfResources(err) {
			return nil, &ResourceExhaustedError{Op: "mmap", Path: path, Limit: "memory-mapped region count (vm.max_map_count)", cause: err}
		}
		return nil, errors.Wrapf(err, "mmapfile: mmap %s", path)
	}
	closed := false
	return &Mapping{
		Data: data,
		closer: func() error {
			if closed {
				return nil
			}
			closed = true
			return unix.Munmap(data)
		},
	}, nil
}
