// Package console backs the STDIN/STDOUT file descriptors every thread
// starts with open, through internal/sbi's firmware binding. Grounded on
// biscuit/src/defs/device.go's D_CONSOLE device-number convention — a
// single well-known device fd rather than a mounted filesystem entry.
package console

import (
	"sv39kernel/internal/fsabi"
	"sv39kernel/internal/sbi"
)

type device struct{}

// Read drains one byte per call from the firmware console. A negative
// ConsoleGetchar result (no byte available) reports a zero-length,
// no-error read.
func (device) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	c := sbi.ConsoleGetchar()
	if c < 0 {
		return 0, nil
	}
	buf[0] = byte(c)
	return 1, nil
}

// Write sends every byte to the firmware console one at a time.
func (device) Write(buf []byte) (int, error) {
	for _, b := range buf {
		sbi.ConsolePutchar(b)
	}
	return len(buf), nil
}

// Stdin and Stdout are the fsabi.File values new threads' fd 0 and fd 1
// are bound to.
var (
	Stdin  fsabi.File = device{}
	Stdout fsabi.File = device{}
)
