// Package sbi is a thin binding to the firmware calls this kernel
// consumes by name: set_timer, console_putchar, console_getchar,
// send_ipi, clear_ipi, shutdown. Firmware
// interaction itself is an explicit external collaborator, so each
// operation is a package-level function variable — the same seam
// gopher-os uses for its runtime hardware hooks and biscuit's mem/dmap.go
// uses for runtime.Cpuid/runtime.Vtop — letting every other package in
// this tree call through sbi without linking against a concrete SBI
// implementation (ecall-based OpenSBI, a QEMU test harness, or a host
// fake for tests).
package sbi

var (
	// SetTimer arms the next supervisor timer interrupt for mtime==at.
	SetTimer = func(at uint64) {}

	// ConsolePutchar writes one byte to the firmware console.
	ConsolePutchar = func(c byte) {}

	// ConsoleGetchar reads one byte from the firmware console, or -1 if
	// none is available.
	ConsoleGetchar = func() int { return -1 }

	// SendIPI sends an inter-processor interrupt to the harts in mask.
	SendIPI = func(mask uint64) {}

	// ClearIPI acknowledges a pending IPI on the calling hart.
	ClearIPI = func() {}

	// Shutdown powers the machine off. It does not return.
	Shutdown = func() { select {} }
)
