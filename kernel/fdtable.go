// Package kernel translates the guest's Linux EL0 system calls onto
// the host. It implements the emulator's supervisor hook.
package kernel

import (
	"io"
	"os"
	"sync"
)

// FileDescriptor represents an open guest file descriptor.
type FileDescriptor struct {
	HostFile *os.File // Host file handle (nil for the standard streams)
	Path     string   // Original path (stream name for fds 0-2)
	Flags    int      // Open flags
	IsOpen   bool     // Whether the FD is currently open
}

// FDTable maps guest file descriptors to host files. Descriptors 0-2
// are the process streams and never carry a host file here; the
// supervisor routes them to its configured reader/writers.
type FDTable struct {
	fds    map[uint64]*FileDescriptor
	nextFD uint64
	mu     sync.Mutex
}

// NewFDTable creates a table with the standard streams open.
func NewFDTable() *FDTable {
	t := &FDTable{
		fds:    make(map[uint64]*FileDescriptor),
		nextFD: 3,
	}
	t.fds[0] = &FileDescriptor{Path: "stdin", IsOpen: true}
	t.fds[1] = &FileDescriptor{Path: "stdout", IsOpen: true}
	t.fds[2] = &FileDescriptor{Path: "stderr", IsOpen: true}
	return t
}

// Open opens a host file and allocates a guest descriptor for it.
func (t *FDTable) Open(path string, flags int, mode os.FileMode) (uint64, error) {
	hostFile, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.nextFD
	t.nextFD++
	t.fds[fd] = &FileDescriptor{
		HostFile: hostFile,
		Path:     path,
		Flags:    flags,
		IsOpen:   true,
	}
	return fd, nil
}

// Close closes a guest descriptor. Closing a standard stream marks it
// closed without touching the host stream.
func (t *FDTable) Close(fd uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return os.ErrInvalid
	}
	entry.IsOpen = false
	if fd <= 2 {
		return nil
	}
	if entry.HostFile != nil {
		err := entry.HostFile.Close()
		entry.HostFile = nil
		return err
	}
	return nil
}

// Get returns the descriptor entry if it exists and is open.
func (t *FDTable) Get(fd uint64) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return nil, false
	}
	return entry, true
}

// Read reads from a non-stream descriptor.
func (t *FDTable) Read(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.HostFile == nil {
		return 0, os.ErrInvalid
	}
	n, err := entry.HostFile.Read(buf)
	if err == io.EOF && n == 0 {
		return 0, nil
	}
	return n, err
}

// Write writes to a non-stream descriptor.
func (t *FDTable) Write(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.HostFile == nil {
		return 0, os.ErrInvalid
	}
	return entry.HostFile.Write(buf)
}

// Seek adjusts the host file position of a non-stream descriptor.
func (t *FDTable) Seek(fd uint64, offset int64, whence int) (int64, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.HostFile == nil {
		return 0, os.ErrInvalid
	}
	return entry.HostFile.Seek(offset, whence)
}

// Stat returns host file information for a descriptor.
func (t *FDTable) Stat(fd uint64) (os.FileInfo, error) {
	entry, ok := t.Get(fd)
	if !ok {
		return nil, os.ErrInvalid
	}
	if entry.HostFile == nil {
		return nil, os.ErrInvalid
	}
	return entry.HostFile.Stat()
}
