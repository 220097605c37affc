// Package kernerr centralizes the sentinel error values shared across the
// kernel's fallible operations.
package kernerr

import "errors"

var (
	// ErrOutOfMemory is returned when the frame allocator or heap is
	// exhausted.
	ErrOutOfMemory = errors.New("kernerr: out of memory")

	// ErrMappingConflict is returned when a segment would overlap an
	// existing one, or a page table entry is mapped twice.
	ErrMappingConflict = errors.New("kernerr: mapping conflict")

	// ErrBadFd is returned when a syscall references a file descriptor
	// that is not open.
	ErrBadFd = errors.New("kernerr: bad file descriptor")

	// ErrIOError wraps an underlying collaborator (block device,
	// filesystem) failure surfaced to a syscall.
	ErrIOError = errors.New("kernerr: i/o error")

	// ErrBadSyscall is returned for an unrecognized module/function pair.
	ErrBadSyscall = errors.New("kernerr: unknown syscall")
)
