// Package riscvcsr declares the privileged control-and-status-register
// primitives that internal/vm and internal/trap need to install address
// spaces and return to user mode. On a riscv64 build their bodies live in
// assembly (csr_riscv64.s); this file exists so the rest of the tree can
// depend on plain Go function signatures instead of assembly directly.
//
// Boot assembly and the trap vector are external collaborators this
// package never implements, so these signatures are written directly
// against the privileged ISA rather than adapted from elsewhere.
//
//go:build riscv64

package riscvcsr

// WriteSatp writes the given 64-bit value into satp. Callers assemble the
// mode field and root PPN themselves.
func WriteSatp(value uint64)

// ReadSatp reads the current satp value.
func ReadSatp() uint64

// SfenceVMA issues an unqualified SFENCE.VMA, flushing every TLB entry.
func SfenceVMA()

// ReadSstatus reads the current sstatus value.
func ReadSstatus() uint64

// ReadScause reads the current scause value.
func ReadScause() uint64

// ReadStval reads the current stval value.
func ReadStval() uint64

// WriteStvec installs the trap vector's entry address.
func WriteStvec(addr uint64)

// WriteSie writes the supervisor interrupt-enable register.
func WriteSie(value uint64)

// ReadSie reads the supervisor interrupt-enable register.
func ReadSie() uint64

// Wfi executes wait-for-interrupt.
func Wfi()

// ReadTime reads the time CSR (mtime shadow), used to compute the next
// timer interrupt's deadline.
func ReadTime() uint64
