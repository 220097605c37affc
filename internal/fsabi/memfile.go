package fsabi

import "sync"

// MemFile is a minimal in-memory File, for tests that need a fd to read
// from or write to without a real console or filesystem behind it. No
// package in this tree currently uses it.
type MemFile struct {
	mu   sync.Mutex
	data []byte
	pos  int
}

// NewMemFile returns a MemFile whose Read calls drain the given bytes.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: data}
}

func (f *MemFile) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(buf, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *MemFile) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, buf...)
	return len(buf), nil
}

// Written returns every byte written so far, for test assertions.
func (f *MemFile) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}
