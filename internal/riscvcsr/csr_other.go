// Non-riscv64 build of the primitives declared in csr.go: every one is a
// no-op (reads answer zero), so the packages that import riscvcsr
// transitively (internal/vm, internal/proc, internal/syscall) build and
// run their tests on a host architecture instead of failing with "build
// constraints exclude all Go files". internal/trap, and internal/kmain
// which imports it, still build only for riscv64: trap's vectorAddr has a
// body only in trap_riscv64.s. Nothing here ever runs on real hardware; only the riscv64
// bodies in csr_riscv64.s do. internal/vm additionally exposes
// SetActivateHooksForTesting so a test driving Mapping.Activate can
// substitute its own satp/sfence seam instead of relying on these stubs
// silently succeeding.
//
//go:build !riscv64

package riscvcsr

func WriteSatp(value uint64) {}

func ReadSatp() uint64 { return 0 }

func SfenceVMA() {}

func ReadSstatus() uint64 { return 0 }

func ReadScause() uint64 { return 0 }

func ReadStval() uint64 { return 0 }

func WriteStvec(addr uint64) {}

func WriteSie(value uint64) {}

func ReadSie() uint64 { return 0 }

func Wfi() {}

func ReadTime() uint64 { return 0 }
