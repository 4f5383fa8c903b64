package guessservice

import "github.com/pkg/errors"

// LoadError reports a fatal problem reading a grammar directory or
// lookup table file: missing or unreadable file, failed mmap, a
// malformed line, or an unparseable probability. Path and Offset (-1
// if not applicable) identify where the problem was found so an
// operator can jump straight to it.
type LoadError struct {
	Path   string
	Offset int64
	cause  error
}

// NewLoadError wraps cause as a LoadError naming path. offset is -1
// when the error is not tied to a specific byte position.
func NewLoadError(path string, offset int64, cause error) *LoadError {
	return &LoadError{Path: path, Offset: offset, cause: cause}
}

func (e *LoadError) Error() string {
	if e.Offset < 0 {
		return errors.Wrapf(e.cause, "load error: %s", e.Path).Error()
	}
	return errors.Wrapf(e.cause, "load error: %s (byte offset %d)", e.Path, e.Offset).Error()
}

func (e *LoadError) Unwrap() error { return e.cause }

// ParseOverflow reports a BigNum-to-machine-integer conversion that
// overflowed where the calling code had assumed a bounded value: a
// sign that the grammar is larger than the code path in question was
// designed to support.
type ParseOverflow struct {
	Context string
	cause   error
}

// NewParseOverflow wraps cause as a ParseOverflow encountered while
// doing context (a short description of the bounded conversion that
// failed).
func NewParseOverflow(context string, cause error) *ParseOverflow {
	return &ParseOverflow{Context: context, cause: cause}
}

func (e *ParseOverflow) Error() string {
	return errors.Wrapf(e.cause, "guess number overflow: %s", e.Context).Error()
}

func (e *ParseOverflow) Unwrap() error { return e.cause }

// ResourceExhaustion reports an open-file or memory-map limit hit
// while loading a Grammar. It is fatal, but distinct from LoadError
// because the fix is an OS limit (nofile, vm.max_map_count), not the
// grammar file itself.
type ResourceExhaustion struct {
	Limit string
	cause error
}

// NewResourceExhaustion wraps cause as a ResourceExhaustion against the
// named limit (e.g. "open files", "mmap count").
func NewResourceExhaustion(limit string, cause error) *ResourceExhaustion {
	return &ResourceExhaustion{Limit: limit, cause: cause}
}

func (e *ResourceExhaustion) Error() string {
	return errors.Wrapf(e.cause, "resource exhaustion: %s limit reached; raise the OS limit and retry", e.Limit).Error()
}

func (e *ResourceExhaustion) Unwrap() error { return e.cause }

// QueryFailure is not a Go error: a per-password parse/rank failure is
// non-fatal and is carried in Result.Code, emitted as a row by
// FormatRow, never returned up the call stack. This type documents
// that decision; it is never constructed.
type QueryFailure struct {
	Code int
}
