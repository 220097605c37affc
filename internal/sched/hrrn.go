package sched

import "sync"

// hrrnEntry tracks the bookkeeping HRRN needs per registered thread: the
// virtual-clock tick it was added at, and how many times it has been
// dispatched since.
type hrrnEntry[T comparable] struct {
	thread  T
	birth   uint64
	service uint64
}

// HRRN is the highest-response-ratio-next policy: GetNext advances a
// virtual clock and selects the thread maximizing
// (clock-birth)/max(service,1), evaluated by cross-multiplication so the
// comparison stays integral. Ties go to the earliest-inserted candidate.
// Grounded on original_source/spicy-os's algo.rs hrrn_scheduler module.
type HRRN[T comparable] struct {
	mu      sync.Mutex
	clock   uint64
	entries []hrrnEntry[T]
}

// NewHRRN constructs an empty HRRN scheduler.
func NewHRRN[T comparable]() *HRRN[T] {
	return &HRRN[T]{}
}

// AddThread registers t with birth set to the current virtual clock.
// priorityHint is ignored.
func (h *HRRN[T]) AddThread(t T, priorityHint int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, hrrnEntry[T]{thread: t, birth: h.clock})
}

// RemoveThread removes t, which must be present exactly once (it panics
// if t is absent, and also if a second occurrence is found), preserving
// the relative insertion order of the remaining entries.
func (h *HRRN[T]) RemoveThread(t T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := -1
	for i, e := range h.entries {
		if e.thread == t {
			if idx != -1 {
				panic("sched: RemoveThread found thread more than once")
			}
			idx = i
		}
	}
	if idx == -1 {
		panic("sched: RemoveThread of thread not present")
	}
	h.entries = append(h.entries[:idx], h.entries[idx+1:]...)
}

// GetNext advances the virtual clock by one tick and returns the entry
// with the highest response ratio, breaking ties by insertion order
// (the first entry reaching the maximum wins).
func (h *HRRN[T]) GetNext() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		var zero T
		return zero, false
	}
	h.clock++
	best := 0
	for i := 1; i < len(h.entries); i++ {
		if responseRatioGreater(h.entries[i], h.entries[best], h.clock) {
			best = i
		}
	}
	h.entries[best].service++
	return h.entries[best].thread, true
}

// SetPriority is a no-op: the default HRRN policy has no weighting hook.
func (h *HRRN[T]) SetPriority(t T, priorityHint int) {}

// responseRatioGreater reports whether a's response ratio strictly
// exceeds b's at the given clock tick, via cross-multiplication:
// (clock-a.birth)/max(a.service,1) > (clock-b.birth)/max(b.service,1)
// iff (clock-a.birth)*max(b.service,1) > (clock-b.birth)*max(a.service,1).
func responseRatioGreater[T comparable](a, b hrrnEntry[T], clock uint64) bool {
	waitA, waitB := clock-a.birth, clock-b.birth
	svcA, svcB := max(a.service, 1), max(b.service, 1)
	return waitA*svcB > waitB*svcA
}
