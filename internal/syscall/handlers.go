package syscall

import (
	"fmt"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/kernerr"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/proc"
	"sv39kernel/internal/vm"
)

// processExit implements process_exit: code, in a2, is logged and the
// calling thread is discarded. This kernel unifies on Kill and lets
// Handle perform the actual switch.
func processExit(t *proc.Thread, ctx *proc.Context) result {
	code := ctx.A(2)
	fmt.Printf("[Kernel] Process %v exited with code %v\n", t.Process().Id(), code)
	fmt.Printf("[Kernel] Thread exited with code %v\n", code)
	return kill()
}

// processGetId implements process_get_id: no arguments, pid in a0.
func processGetId(t *proc.Thread) result {
	return proceed(uint64(t.Process().Id()))
}

// fsRead implements fs_read: fd, buf_ptr, len in a2/a3/a4. A missing fd or
// an underlying read error answers ProceedTwo(0, 1). A successful read of
// zero bytes parks the thread to wait for a device interrupt to wake it;
// any other count is copied into the caller's buffer and returned.
func fsRead(t *proc.Thread, ctx *proc.Context) result {
	fd := int(ctx.A(2))
	bufPtr := addr.Virtual(ctx.A(3))
	length := int(ctx.A(4))

	f, ok := t.Descriptor(fd)
	if !ok {
		return proceedTwo(0, errGeneric)
	}

	buf := make([]byte, length)
	n, err := f.Read(buf)
	if err != nil {
		return proceedTwo(0, errGeneric)
	}
	if n == 0 {
		return park(0)
	}
	if err := copyToUser(t.Process().Mapping(), bufPtr, buf[:n]); err != nil {
		return proceedTwo(0, errGeneric)
	}
	return proceedTwo(uint64(n), errOK)
}

// fsWrite implements fs_write: fd, buf_ptr, len in a2/a3/a4.
func fsWrite(t *proc.Thread, ctx *proc.Context) result {
	fd := int(ctx.A(2))
	bufPtr := addr.Virtual(ctx.A(3))
	length := int(ctx.A(4))

	f, ok := t.Descriptor(fd)
	if !ok {
		return proceedTwo(0, errGeneric)
	}

	buf, err := copyFromUser(t.Process().Mapping(), bufPtr, length)
	if err != nil {
		return proceedTwo(0, errGeneric)
	}
	n, err := f.Write(buf)
	if err != nil {
		return proceedTwo(0, errGeneric)
	}
	return proceedTwo(uint64(n), errOK)
}

// withUserPages walks the page-aligned windows covering [va, va+n) in
// mapping, invoking fn once per page with the slice of that page's bytes
// actually in range and the byte offset within the logical [0,n) region
// it corresponds to. It is the only place fs_read/fs_write cross from a
// user virtual address into the kernel's direct-mapped view of the same
// physical frame.
func withUserPages(mapping *vm.Mapping, va addr.Virtual, n int, fn func(pageBytes []byte, offset int)) error {
	remaining := n
	cur := va
	for remaining > 0 {
		vpn := addr.VpnFloor(cur)
		e, err := mapping.FindEntry(vpn)
		if err != nil {
			return err
		}
		if !e.Valid() {
			return kernerr.ErrIOError
		}
		pageOff := int(uint64(cur) % memlayout.PageSize)
		chunk := memlayout.PageSize - pageOff
		if chunk > remaining {
			chunk = remaining
		}
		page := mem.BytesAt(e.Ppn())
		fn(page[pageOff:pageOff+chunk], n-remaining)
		cur += addr.Virtual(chunk)
		remaining -= chunk
	}
	return nil
}

// copyFromUser reads n bytes starting at va out of the user address space
// mapping describes.
func copyFromUser(mapping *vm.Mapping, va addr.Virtual, n int) ([]byte, error) {
	out := make([]byte, n)
	err := withUserPages(mapping, va, n, func(pageBytes []byte, offset int) {
		copy(out[offset:], pageBytes)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// copyToUser writes data into the user address space mapping describes,
// starting at va.
func copyToUser(mapping *vm.Mapping, va addr.Virtual, data []byte) error {
	return withUserPages(mapping, va, len(data), func(pageBytes []byte, offset int) {
		copy(pageBytes, data[offset:])
	})
}
