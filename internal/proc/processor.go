package proc

import (
	"fmt"
	"sync"

	"sv39kernel/internal/kstat"
	"sv39kernel/internal/riscvcsr"
	"sv39kernel/internal/sbi"
	"sv39kernel/internal/sched"
)

// wfi is a seam over the wait-for-interrupt instruction so host tests
// exercising the scheduler-empty path don't need a real idle loop.
var wfi = riscvcsr.Wfi

// restore is the hand-off to the low-level __restore stub: load every
// register in ctx and issue sret. Like sbi's shutdown binding, it never
// returns on real hardware, so the default implementation blocks forever
// rather than returning a value nothing would use.
var restore = func(ctx *Context) {
	select {}
}

// Processor is the process-wide scheduling singleton: the
// currently running thread, the scheduler holding every other runnable
// thread, and the set of threads waiting on I/O. It is created once at
// boot and never destroyed.
type Processor struct {
	mu        sync.Mutex
	current   *Thread
	scheduler sched.Scheduler[*Thread]

	sleepMu  sync.Mutex
	sleeping map[*Thread]struct{}
}

// NewProcessor constructs a Processor around the given scheduling
// policy (FIFO or HRRN).
func NewProcessor(scheduler sched.Scheduler[*Thread]) *Processor {
	return &Processor{
		scheduler: scheduler,
		sleeping:  make(map[*Thread]struct{}),
	}
}

// Current returns the currently running thread, or nil if none.
func (p *Processor) Current() *Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// AddThread registers t with the scheduler, and additionally makes it
// the current thread if none is set yet.
func (p *Processor) AddThread(t *Thread) {
	p.mu.Lock()
	if p.current == nil {
		p.current = t
	}
	p.mu.Unlock()
	p.scheduler.AddThread(t, 0)
}

// Run requires a current thread, prepares it (activating its address
// space and positioning its Context on the correct stack), and transfers
// control to __restore. It never returns.
func (p *Processor) Run() {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		panic("proc: Run called with no current thread")
	}
	restore(cur.Prepare())
}

// PrepareNextThread consults the scheduler for the next thread to run.
// If it is already current, the fast path applies: no address-space
// switch is needed, but a caller may already have parked incoming into
// cur's saved slot (ParkCurrentThread, ahead of a Park/ParkTwo syscall
// result) even though cur was never actually descheduled, so that slot
// is cleared here exactly as Prepare would have cleared it — otherwise
// the next Park of this same thread finds the slot still occupied and
// panics. incoming itself, not the cleared slot's contents, is what gets
// returned and resumed, since it already holds the live register state.
// Otherwise the next thread is prepared, installed as current, and the
// outgoing thread (if any — there may be none right after a kill) is
// parked with incoming, replacing whatever a caller already parked into
// its slot for the same reason as on the fast path. If the scheduler has nothing runnable: when the
// sleeping set is also empty the machine has nothing left to do and is
// shut down; otherwise this busy-waits via WFI until a waker moves a
// sleeping thread back to the scheduler.
func (p *Processor) PrepareNextThread(incoming *Context) *Context {
	for {
		p.mu.Lock()
		cur := p.current
		p.mu.Unlock()

		next, ok := p.scheduler.GetNext()
		if !ok {
			if p.sleepingEmpty() {
				fmt.Println("[Kernel] no runnable or sleeping threads remain, shutting down")
				sbi.Shutdown()
			}
			wfi()
			continue
		}
		if next == cur {
			cur.clearParkedSlot()
			return incoming
		}

		nextFrame := next.Prepare()
		p.mu.Lock()
		p.current = next
		p.mu.Unlock()
		if cur != nil {
			cur.clearParkedSlot()
			cur.Park(incoming)
		}
		kstat.Global.ContextSwitch.Inc()
		return nextFrame
	}
}

// ParkCurrentThread copies frame into the current thread's saved slot
// without removing it from the scheduler.
func (p *Processor) ParkCurrentThread(frame *Context) {
	cur := p.Current()
	if cur == nil {
		panic("proc: ParkCurrentThread with no current thread")
	}
	cur.Park(frame)
}

// SleepCurrentThread removes the current thread from the scheduler and
// moves it into the sleeping set. It remains current until the next
// PrepareNextThread replaces it.
func (p *Processor) SleepCurrentThread() {
	cur := p.Current()
	if cur == nil {
		panic("proc: SleepCurrentThread with no current thread")
	}
	p.scheduler.RemoveThread(cur)
	p.sleepMu.Lock()
	p.sleeping[cur] = struct{}{}
	p.sleepMu.Unlock()
}

// WakeThread moves t from the sleeping set back into the scheduler.
func (p *Processor) WakeThread(t *Thread) {
	p.sleepMu.Lock()
	_, present := p.sleeping[t]
	delete(p.sleeping, t)
	p.sleepMu.Unlock()
	if !present {
		panic("proc: WakeThread of a thread not in the sleeping set")
	}
	p.scheduler.AddThread(t, 0)
}

// KillCurrentThread removes the current thread from the scheduler and
// clears the current slot. Any reference the sleeping set or a waker
// still holds keeps the thread's memory alive until it is released.
func (p *Processor) KillCurrentThread() {
	p.mu.Lock()
	cur := p.current
	p.current = nil
	p.mu.Unlock()
	if cur == nil {
		panic("proc: KillCurrentThread with no current thread")
	}
	p.scheduler.RemoveThread(cur)
}

func (p *Processor) sleepingEmpty() bool {
	p.sleepMu.Lock()
	defer p.sleepMu.Unlock()
	return len(p.sleeping) == 0
}

// global is the process-wide Processor instance, brought up once during
// kernel init.
var global *Processor

// Init installs the global Processor around the given scheduling policy.
func Init(scheduler sched.Scheduler[*Thread]) {
	global = NewProcessor(scheduler)
}

// Global returns the process-wide Processor instance.
func Global() *Processor {
	return global
}
