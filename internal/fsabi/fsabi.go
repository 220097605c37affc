// Package fsabi declares the minimal collaborator interface a file
// descriptor binds to. A concrete filesystem or block device is an
// external collaborator this package never implements; this
// interface exists so internal/proc and internal/syscall can be written
// against a file descriptor without depending on one. Grounded on
// biscuit/src/fd/fd.go's Fdops_i — a small interface over a concrete fd,
// not a filesystem.
package fsabi

// File is what a file descriptor slot holds: something fs_read and
// fs_write can call into.
type File interface {
	Read(buf []byte) (n int, err error)
	Write(buf []byte) (n int, err error)
}

// Standard descriptor numbers every thread starts with open.
const (
	FdStdin  = 0
	FdStdout = 1
)

// INode is the hierarchical filesystem collaborator: root.lookup(path)
// -> INode, inode.read_at/write_at, inode.readall, and a directory's
// get_entry(idx). The on-disk filesystem implementation itself is an
// external collaborator this package never implements — this interface
// is only the seam internal/kmain mounts through to load the first user
// ELF image off disk.
type INode interface {
	ReadAt(offset int64, buf []byte) (n int, err error)
	WriteAt(offset int64, buf []byte) (n int, err error)
	ReadAll() ([]byte, error)
	GetEntry(idx int) (name string, ok bool)
}

// Root is the filesystem mount point: root.lookup(path).
type Root interface {
	Lookup(path string) (INode, error)
}

// BlockDevice is the VirtIO/device-tree collaborator: read_block(id,
// &mut [u8; 512]) -> bool, write_block(id, &[u8; 512]) -> bool. Nothing
// in this package touches it directly; it exists here so a
// filesystem collaborator and internal/kmain's mount step can be written
// against a stable type without importing a concrete driver.
type BlockDevice interface {
	ReadBlock(id uint64, buf *[512]byte) bool
	WriteBlock(id uint64, buf *[512]byte) bool
}
