// Package mmapfile memory-maps a file read-only for the lifetime of a
// Mapping. Nonterminal and LookupTable both use it to back their data
// with the OS page cache rather than a private heap copy: the
// memory-mapped terminal files and lookup table file are read-only,
// and the OS page cache is the sharing substrate across processes. No
// locking is needed.
//
// The file descriptor is closed immediately after the mapping is
// established; the mapping itself keeps the pages resident.
package mmapfile

// Mapping is a read-only view of a file's contents. The zero value is
// not usable; construct one with Open.
type Mapping struct {
	Data []byte

	closer func() error
}

// Open maps path read-only into memory. The returned Mapping owns
// Data; callers (e.g. TerminalGroup) must not retain Data past a call
// to Close.
func Open(path string) (*Mapping, error) {
	return openFile(path)
}

// Close releases the mapping. Data must not be used afterward.
func (m *Mapping) Close() error {
	if m == nil || m.closer == nil {
		return nil
	}
	err := m.closer()
	m.closer = nil
	m.Data = nil
	return err
}

// ResourceExhaustedError reports that Open failed because an OS
// resource limit was hit (too many open file descriptors, or the
// process's mmap-count limit), rather than because path was missing
// or malformed. Callers distinguish this from an ordinary open/mmap
// failure with errors.As so they can surface OS-limit remediation
// guidance instead of a generic diagnostic.
type ResourceExhaustedError struct {
	Op    string // "open" or "mmap"
	Path  string
	Limit string // human-readable name of the exhausted limit
	cause error
}

func (e *ResourceExhaustedError) Error() string {
	return "mmapfile: " + e.Op + " " + e.Path + ": " + e.Limit + " exhausted: " + e.cause.Error()
}

func (e *ResourceExhaustedError) Unwrap() error { return e.cause }
