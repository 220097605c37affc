package riscvcsr

// EnableTimerInterrupt sets SIE's timer-interrupt-enable bit (bit 5).
// Built for every architecture (unlike the primitives it calls), since it
// is pure composition over ReadSie/WriteSie and carries no build tag of
// its own.
func EnableTimerInterrupt() {
	writeSieBit(1 << 5)
}

func writeSieBit(mask uint64) {
	WriteSie(ReadSie() | mask)
}
