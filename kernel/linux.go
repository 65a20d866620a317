package kernel

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/sarchlab/a64emu/emu"
	"github.com/sarchlab/a64emu/loader"
)

// ARM64 Linux syscall numbers.
const (
	sysIoctl         uint64 = 29
	sysOpenat        uint64 = 56
	sysClose         uint64 = 57
	sysLseek         uint64 = 62
	sysRead          uint64 = 63
	sysWrite         uint64 = 64
	sysReadv         uint64 = 65
	sysWritev        uint64 = 66
	sysFstat         uint64 = 80
	sysExit          uint64 = 93
	sysExitGroup     uint64 = 94
	sysSetTIDAddress uint64 = 96
	sysClockGettime  uint64 = 113
	sysSchedYield    uint64 = 124
	sysRtSigaction   uint64 = 134
	sysRtSigprocmask uint64 = 135
	sysUname         uint64 = 160
	sysGettimeofday  uint64 = 169
	sysGetpid        uint64 = 172
	sysGetuid        uint64 = 174
	sysGeteuid       uint64 = 175
	sysGetgid        uint64 = 176
	sysGetegid       uint64 = 177
	sysGettid        uint64 = 178
	sysBrk           uint64 = 214
	sysMunmap        uint64 = 215
	sysMmap          uint64 = 222
	sysMprotect      uint64 = 226
	sysMadvise       uint64 = 233
	sysGetrandom     uint64 = 278
)

// Linux errno values returned to the guest as -errno in x0.
const (
	EBADF  = 9
	ENOMEM = 12
	EACCES = 13
	EINVAL = 22
	ENOSYS = 38
)

// Guest open(2) flag bits (asm-generic values).
const (
	oWronly = 0x1
	oRdwr   = 0x2
	oCreat  = 0x40
	oExcl   = 0x80
	oTrunc  = 0x200
	oAppend = 0x400
)

const atFDCWD = ^uint64(99) // -100

// TIOCGWINSZ asks for the terminal window size.
const tiocgwinsz = 0x5413

// Linux implements emu.SupervisorHandler by translating guest
// syscalls to host operations. The guest's standard streams route to
// the configured reader and writers; other descriptors go through the
// FD table.
type Linux struct {
	fds    *FDTable
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	brk      uint64
	brkFloor uint64
	mmapNext uint64
	mmapEnd  uint64

	exited   bool
	exitCode int64
}

// Option configures the supervisor.
type Option func(*Linux)

// WithStdin sets the guest's standard input.
func WithStdin(r io.Reader) Option {
	return func(k *Linux) { k.stdin = r }
}

// WithStdout sets the guest's standard output.
func WithStdout(w io.Writer) Option {
	return func(k *Linux) { k.stdout = w }
}

// WithStderr sets the guest's standard error.
func WithStderr(w io.Writer) Option {
	return func(k *Linux) { k.stderr = w }
}

// New creates a supervisor for a loaded image.
func New(img *loader.Image, opts ...Option) *Linux {
	k := &Linux{
		fds:      NewFDTable(),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		brk:      img.Brk,
		brkFloor: img.Brk,
		mmapNext: img.MmapBase,
		mmapEnd:  img.MmapBase + loader.DefaultMmapSize,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Exited reports whether the guest called exit, and its status.
func (k *Linux) Exited() (bool, int64) {
	return k.exited, k.exitCode
}

// InvokeSVC dispatches the syscall in x8. The return value goes to
// x0; errors return -errno.
func (k *Linux) InvokeSVC(m *emu.Machine) {
	num := m.Reg(8)

	switch num {
	case sysExit, sysExitGroup:
		k.exited = true
		k.exitCode = int64(m.Reg(0))
		m.EndEmulation()

	case sysRead:
		k.doRead(m)
	case sysWrite:
		k.doWrite(m)
	case sysReadv:
		k.doVectored(m, false)
	case sysWritev:
		k.doVectored(m, true)
	case sysOpenat:
		k.doOpenat(m)
	case sysClose:
		if err := k.fds.Close(m.Reg(0)); err != nil {
			setError(m, EBADF)
		} else {
			m.SetReg(0, 0)
		}
	case sysLseek:
		pos, err := k.fds.Seek(m.Reg(0), int64(m.Reg(1)), int(m.Reg(2)))
		if err != nil {
			setError(m, EBADF)
		} else {
			m.SetReg(0, uint64(pos))
		}
	case sysFstat:
		k.doFstat(m)
	case sysIoctl:
		k.doIoctl(m)
	case sysBrk:
		k.doBrk(m)
	case sysMmap:
		k.doMmap(m)
	case sysMunmap, sysMprotect, sysMadvise:
		m.SetReg(0, 0)
	case sysClockGettime:
		k.doClockGettime(m)
	case sysGettimeofday:
		k.doGettimeofday(m)
	case sysUname:
		k.doUname(m)
	case sysGetrandom:
		k.doGetrandom(m)
	case sysGetpid, sysGettid:
		m.SetReg(0, uint64(os.Getpid()))
	case sysGetuid, sysGeteuid:
		m.SetReg(0, uint64(os.Getuid()))
	case sysGetgid, sysGetegid:
		m.SetReg(0, uint64(os.Getgid()))
	case sysSetTIDAddress:
		m.SetReg(0, uint64(os.Getpid()))
	case sysSchedYield, sysRtSigaction, sysRtSigprocmask:
		m.SetReg(0, 0)

	default:
		setError(m, ENOSYS)
	}
}

func setError(m *emu.Machine, errno int) {
	m.SetReg(0, uint64(-int64(errno)))
}

func (k *Linux) doRead(m *emu.Machine) {
	fd := m.Reg(0)
	buf := m.Memory().Bytes(m.Reg(1), m.Reg(2))

	var n int
	var err error
	if fd == 0 {
		if k.stdin == nil {
			m.SetReg(0, 0)
			return
		}
		n, err = k.stdin.Read(buf)
	} else {
		n, err = k.fds.Read(fd, buf)
	}
	if err != nil && err != io.EOF {
		if n == 0 {
			setError(m, EBADF)
			return
		}
	}
	m.SetReg(0, uint64(n))
}

func (k *Linux) doWrite(m *emu.Machine) {
	n, errno := k.writeFD(m.Reg(0), m.Memory().Bytes(m.Reg(1), m.Reg(2)))
	if errno != 0 {
		setError(m, errno)
		return
	}
	m.SetReg(0, uint64(n))
}

func (k *Linux) writeFD(fd uint64, buf []byte) (int, int) {
	switch fd {
	case 1:
		n, err := k.stdout.Write(buf)
		if err != nil {
			return n, EBADF
		}
		return n, 0
	case 2:
		n, err := k.stderr.Write(buf)
		if err != nil {
			return n, EBADF
		}
		return n, 0
	}
	n, err := k.fds.Write(fd, buf)
	if err != nil {
		return n, EBADF
	}
	return n, 0
}

// doVectored handles readv/writev over guest iovec arrays.
func (k *Linux) doVectored(m *emu.Machine, write bool) {
	fd := m.Reg(0)
	iov := m.Reg(1)
	count := m.Reg(2)

	total := 0
	for i := uint64(0); i < count; i++ {
		base := m.Memory().Read64(iov + i*16)
		length := m.Memory().Read64(iov + i*16 + 8)
		if length == 0 {
			continue
		}
		buf := m.Memory().Bytes(base, length)
		if write {
			n, errno := k.writeFD(fd, buf)
			total += n
			if errno != 0 {
				setError(m, errno)
				return
			}
		} else {
			var n int
			var err error
			if fd == 0 && k.stdin != nil {
				n, err = k.stdin.Read(buf)
			} else {
				n, err = k.fds.Read(fd, buf)
			}
			total += n
			if err != nil || uint64(n) < length {
				break
			}
		}
	}
	m.SetReg(0, uint64(total))
}

func (k *Linux) doOpenat(m *emu.Machine) {
	dirfd := m.Reg(0)
	path := m.Memory().CString(m.Reg(1))
	flags := m.Reg(2)
	mode := m.Reg(3)

	if dirfd != atFDCWD && len(path) > 0 && path[0] != '/' {
		setError(m, EINVAL)
		return
	}

	hostFlags := os.O_RDONLY
	if flags&oWronly != 0 {
		hostFlags = os.O_WRONLY
	} else if flags&oRdwr != 0 {
		hostFlags = os.O_RDWR
	}
	if flags&oCreat != 0 {
		hostFlags |= os.O_CREATE
	}
	if flags&oExcl != 0 {
		hostFlags |= os.O_EXCL
	}
	if flags&oTrunc != 0 {
		hostFlags |= os.O_TRUNC
	}
	if flags&oAppend != 0 {
		hostFlags |= os.O_APPEND
	}

	fd, err := k.fds.Open(path, hostFlags, os.FileMode(mode)&os.ModePerm)
	if err != nil {
		setError(m, EACCES)
		return
	}
	m.SetReg(0, fd)
}

// doFstat fills the arm64 struct stat. The standard streams report as
// character devices so libc line-buffers correctly.
func (k *Linux) doFstat(m *emu.Machine) {
	fd := m.Reg(0)
	statbuf := m.Reg(1)
	buf := m.Memory().Bytes(statbuf, 128)
	for i := range buf {
		buf[i] = 0
	}

	if fd <= 2 {
		binary.LittleEndian.PutUint32(buf[16:], 0x2000|0o620) // S_IFCHR
		binary.LittleEndian.PutUint32(buf[20:], 1)            // st_nlink
		binary.LittleEndian.PutUint32(buf[56:], 1024)         // st_blksize
		m.SetReg(0, 0)
		return
	}

	info, err := k.fds.Stat(fd)
	if err != nil {
		setError(m, EBADF)
		return
	}
	mode := uint32(0o644)
	if info.IsDir() {
		mode |= 0x4000 // S_IFDIR
	} else {
		mode |= 0x8000 // S_IFREG
	}
	binary.LittleEndian.PutUint32(buf[16:], mode)
	binary.LittleEndian.PutUint32(buf[20:], 1)
	binary.LittleEndian.PutUint64(buf[48:], uint64(info.Size()))
	binary.LittleEndian.PutUint32(buf[56:], 4096)
	binary.LittleEndian.PutUint64(buf[64:], uint64((info.Size()+511)/512))
	mtime := info.ModTime()
	binary.LittleEndian.PutUint64(buf[88:], uint64(mtime.Unix()))
	binary.LittleEndian.PutUint64(buf[96:], uint64(mtime.Nanosecond()))
	m.SetReg(0, 0)
}

// doIoctl answers TIOCGWINSZ against the host terminal when the
// stream really is one.
func (k *Linux) doIoctl(m *emu.Machine) {
	fd := m.Reg(0)
	req := m.Reg(1)

	if req != tiocgwinsz || fd > 2 {
		setError(m, EINVAL)
		return
	}

	hostFD := int(os.Stdout.Fd())
	if fd == 0 {
		hostFD = int(os.Stdin.Fd())
	}
	cols, rows := 80, 24
	if term.IsTerminal(hostFD) {
		if c, r, err := term.GetSize(hostFD); err == nil {
			cols, rows = c, r
		}
	}
	buf := m.Memory().Bytes(m.Reg(2), 8)
	binary.LittleEndian.PutUint16(buf[0:], uint16(rows))
	binary.LittleEndian.PutUint16(buf[2:], uint16(cols))
	binary.LittleEndian.PutUint16(buf[4:], 0)
	binary.LittleEndian.PutUint16(buf[6:], 0)
	m.SetReg(0, 0)
}

// doBrk moves the program break within the reserved heap region. A
// request of 0 queries the current break.
func (k *Linux) doBrk(m *emu.Machine) {
	req := m.Reg(0)
	if req >= k.brkFloor && req < k.mmapEnd-loader.DefaultMmapSize {
		k.brk = req
	}
	m.SetReg(0, k.brk)
}

// doMmap serves anonymous private mappings from a bump region;
// file-backed mappings are refused.
func (k *Linux) doMmap(m *emu.Machine) {
	length := m.Reg(1)
	fd := int64(m.Reg(4))

	if fd >= 0 {
		setError(m, EACCES)
		return
	}
	length = (length + 4095) &^ 4095
	if length == 0 || k.mmapNext+length > k.mmapEnd {
		setError(m, ENOMEM)
		return
	}
	addr := k.mmapNext
	k.mmapNext += length
	// Fresh anonymous pages read as zero.
	buf := m.Memory().Bytes(addr, length)
	for i := range buf {
		buf[i] = 0
	}
	m.SetReg(0, addr)
}

func (k *Linux) doClockGettime(m *emu.Machine) {
	now := time.Now()
	buf := m.Memory().Bytes(m.Reg(1), 16)
	binary.LittleEndian.PutUint64(buf[0:], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(now.Nanosecond()))
	m.SetReg(0, 0)
}

func (k *Linux) doGettimeofday(m *emu.Machine) {
	now := time.Now()
	buf := m.Memory().Bytes(m.Reg(0), 16)
	binary.LittleEndian.PutUint64(buf[0:], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(now.Nanosecond()/1000))
	m.SetReg(0, 0)
}

func (k *Linux) doUname(m *emu.Machine) {
	fields := []string{"Linux", "a64emu", "6.6.0", "#1 SMP", "aarch64", ""}
	addr := m.Reg(0)
	for i, f := range fields {
		buf := m.Memory().Bytes(addr+uint64(i)*65, 65)
		for j := range buf {
			buf[j] = 0
		}
		copy(buf, f)
	}
	m.SetReg(0, 0)
}

func (k *Linux) doGetrandom(m *emu.Machine) {
	buf := m.Memory().Bytes(m.Reg(0), m.Reg(1))
	_, _ = rand.Read(buf)
	m.SetReg(0, uint64(len(buf)))
}
