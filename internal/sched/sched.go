// Package sched implements the scheduler trait the Processor consults to
// pick the next runnable thread, plus two concrete policies: FIFO
// round-robin and HRRN.
package sched

// Scheduler is the trait surface every scheduling policy implements,
// parameterized by a thread handle type that supports equality (so
// RemoveThread/GetNext can compare handles directly) and is cheap to
// copy (a pointer or small struct, never a value threads are stored by).
type Scheduler[T comparable] interface {
	// AddThread registers t with the scheduler. priorityHint is advisory;
	// FIFO ignores it, HRRN currently ignores it too — neither default
	// policy has a priority-weighted variant.
	AddThread(t T, priorityHint int)

	// RemoveThread removes t. It panics if t was not present exactly
	// once, since that indicates a bookkeeping bug in the caller
	// (Processor never removes a thread it didn't add).
	RemoveThread(t T)

	// GetNext selects and returns the next runnable thread. ok is false
	// iff no thread is registered.
	GetNext() (t T, ok bool)

	SetPriority(t T, priorityHint int)
}
