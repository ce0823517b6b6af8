package pmem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"
)

// --------------------------------------------------------------------------
// Constants and Errors
// --------------------------------------------------------------------------

const (
	magic       = "NVKVPOOL"
	version     = 1
	layoutSize  = 32  // fixed-size layout tag field
	headerSize  = 128 // reserved space at the start of the mapping
	undoDivisor = 16  // undo log capacity = pool size / undoDivisor
	minUndoCap  = 64 * 1024

	// MinPoolSize is the smallest pool the allocator can operate on.
	MinPoolSize = 1 << 20
)

var (
	// ErrNotPool is returned when the file is not a nvKV pool.
	ErrNotPool = errors.New("pmem: not a pool file")
	// ErrLayout is returned when the pool was created for another engine.
	ErrLayout = errors.New("pmem: layout tag mismatch")
	// ErrBusy is returned when the pool is already open.
	ErrBusy = errors.New("pmem: pool already open")
	// ErrNoSpace is returned when an allocation does not fit the pool.
	ErrNoSpace = errors.New("pmem: out of pool space")
	// ErrTxScope is returned when a transactional operation runs outside
	// of a transaction, or a second transaction is begun.
	ErrTxScope = errors.New("pmem: operation outside transaction scope")
	// ErrTooSmall is returned when a pool is created below MinPoolSize.
	ErrTooSmall = fmt.Errorf("pmem: pool size below minimum (%d bytes)", MinPoolSize)
)

// header field offsets, little endian throughout
const (
	offMagic    = 0
	offVersion  = 8
	offLayout   = 16
	offPoolSize = 48
	offRoot     = 56
	offBrk      = 64
	offFreeHead = 72
	offUndoOff  = 80
	offUndoCap  = 88
	offHeapOff  = 96
)

// openPools tracks every pool path mapped by this process. Together with the
// advisory file lock this enforces exclusive opens across threads and
// processes.
var openPools = xsync.NewMapOf[string, struct{}]()

// --------------------------------------------------------------------------
// PPtr
// --------------------------------------------------------------------------

// PPtr is a pool-relative pointer. The zero value is the null pointer.
type PPtr uint64

// IsNull reports whether p is the null pointer.
func (p PPtr) IsNull() bool { return p == 0 }

// --------------------------------------------------------------------------
// Pool
// --------------------------------------------------------------------------

// Pool is a memory-mapped persistent heap with a single root object.
//
// Thread-safety: a Pool is owned by one engine instance and is not safe for
// concurrent use. Distinct pools are fully independent.
type Pool struct {
	path string
	file *os.File
	data []byte

	size    uint64
	undoOff uint64
	undoCap uint64
	heapOff uint64
	tx      *Tx // currently running transaction, nil if none
}

// Create initializes a new pool file of the given size, tagged with the
// layout name of the owning engine. An existing file is overwritten.
func Create(path, layout string, size uint64) (*Pool, error) {
	if size < MinPoolSize {
		return nil, ErrTooSmall
	}
	if len(layout) == 0 || len(layout) >= layoutSize {
		return nil, fmt.Errorf("pmem: invalid layout tag %q", layout)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, loaded := openPools.LoadOrStore(abs, struct{}{}); loaded {
		return nil, ErrBusy
	}

	file, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		openPools.Delete(abs)
		return nil, err
	}

	pool, err := initPool(abs, file, layout, size)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(abs)
		openPools.Delete(abs)
		return nil, err
	}
	return pool, nil
}

// Open maps an existing pool file and verifies its layout tag. If the pool
// contains an interrupted transaction it is rolled back before Open
// returns.
func Open(path, layout string) (*Pool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, loaded := openPools.LoadOrStore(abs, struct{}{}); loaded {
		return nil, ErrBusy
	}

	file, err := os.OpenFile(abs, os.O_RDWR, 0o644)
	if err != nil {
		openPools.Delete(abs)
		return nil, err
	}

	pool, err := mapPool(abs, file, layout)
	if err != nil {
		_ = file.Close()
		openPools.Delete(abs)
		return nil, err
	}
	return pool, nil
}

// initPool writes a fresh header into the (truncated) file and maps it.
func initPool(abs string, file *os.File, layout string, size uint64) (*Pool, error) {
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, ErrBusy
	}
	if err := file.Truncate(int64(size)); err != nil {
		return nil, err
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	undoCap := size / undoDivisor
	if undoCap < minUndoCap {
		undoCap = minUndoCap
	}
	undoOff := uint64(headerSize)
	heapOff := undoOff + undoCap

	copy(data[offMagic:], magic)
	binary.LittleEndian.PutUint32(data[offVersion:], version)
	copy(data[offLayout:offLayout+layoutSize], make([]byte, layoutSize))
	copy(data[offLayout:], layout)
	binary.LittleEndian.PutUint64(data[offPoolSize:], size)
	binary.LittleEndian.PutUint64(data[offRoot:], 0)
	binary.LittleEndian.PutUint64(data[offBrk:], heapOff)
	binary.LittleEndian.PutUint64(data[offFreeHead:], 0)
	binary.LittleEndian.PutUint64(data[offUndoOff:], undoOff)
	binary.LittleEndian.PutUint64(data[offUndoCap:], undoCap)
	binary.LittleEndian.PutUint64(data[offHeapOff:], heapOff)
	binary.LittleEndian.PutUint64(data[undoOff:], 0) // empty undo log

	pool := &Pool{
		path:    abs,
		file:    file,
		data:    data,
		size:    size,
		undoOff: undoOff,
		undoCap: undoCap,
		heapOff: heapOff,
	}
	if err := pool.sync(); err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	return pool, nil
}

// mapPool maps an existing file and validates the header.
func mapPool(abs string, file *os.File, layout string) (*Pool, error) {
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, ErrBusy
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := uint64(info.Size())
	if size < headerSize {
		return nil, ErrNotPool
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	if string(data[offMagic:offMagic+len(magic)]) != magic {
		_ = unix.Munmap(data)
		return nil, ErrNotPool
	}
	if v := binary.LittleEndian.Uint32(data[offVersion:]); v != version {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("pmem: unsupported pool version %d", v)
	}
	tag := data[offLayout : offLayout+layoutSize]
	if got := string(trimNul(tag)); got != layout {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("%w: pool is %q, requested %q", ErrLayout, got, layout)
	}
	if ps := binary.LittleEndian.Uint64(data[offPoolSize:]); ps != size {
		_ = unix.Munmap(data)
		return nil, ErrNotPool
	}

	pool := &Pool{
		path:    abs,
		file:    file,
		data:    data,
		size:    size,
		undoOff: binary.LittleEndian.Uint64(data[offUndoOff:]),
		undoCap: binary.LittleEndian.Uint64(data[offUndoCap:]),
		heapOff: binary.LittleEndian.Uint64(data[offHeapOff:]),
	}

	// roll back an interrupted transaction
	if err := pool.recoverUndo(); err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	return pool, nil
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// Close unmaps the pool. Volatile state derived from the pool must not be
// used afterwards.
func (p *Pool) Close() error {
	if p.data == nil {
		return nil
	}
	if p.tx != nil {
		_ = p.tx.Abort()
	}
	err := p.sync()
	if e := unix.Munmap(p.data); err == nil {
		err = e
	}
	p.data = nil
	if e := p.file.Close(); err == nil {
		err = e
	}
	openPools.Delete(p.path)
	return err
}

// Path returns the backing file path.
func (p *Pool) Path() string { return p.path }

// Size returns the pool size in bytes.
func (p *Pool) Size() uint64 { return p.size }

// --------------------------------------------------------------------------
// Memory Access
// --------------------------------------------------------------------------

// View returns the byte range [off, off+n) of the mapping. The slice
// aliases pool memory: it is valid until Close and must only be written
// through a transaction that snapshotted the range first.
func (p *Pool) View(off PPtr, n int) []byte {
	end := uint64(off) + uint64(n)
	if off.IsNull() || end > p.size {
		panic(fmt.Sprintf("pmem: view [%d,%d) outside pool of size %d", off, end, p.size))
	}
	return p.data[off:end:end]
}

// Root returns the root object pointer, or the null pointer if no root has
// been created yet.
func (p *Pool) Root() PPtr {
	return PPtr(binary.LittleEndian.Uint64(p.data[offRoot:]))
}

// EnsureRoot returns the root object, allocating a zeroed object of the
// given size inside tx on first use.
func (p *Pool) EnsureRoot(tx *Tx, size int) (PPtr, error) {
	if root := p.Root(); !root.IsNull() {
		return root, nil
	}
	root, err := tx.Alloc(size)
	if err != nil {
		return 0, err
	}
	if err := tx.Snapshot(PPtr(offRoot), 8); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint64(p.data[offRoot:], uint64(root))
	return root, nil
}

// sync flushes the whole mapping to stable storage.
func (p *Pool) sync() error {
	return unix.Msync(p.data, unix.MS_SYNC)
}

// syncRange flushes the pages covering [off, off+n) only. Cheaper than a
// full sync for the frequent small undo-log appends.
func (p *Pool) syncRange(off, n uint64) error {
	page := uint64(os.Getpagesize())
	start := off &^ (page - 1)
	end := (off + n + page - 1) &^ (page - 1)
	if end > p.size {
		end = p.size
	}
	return unix.Msync(p.data[start:end], unix.MS_SYNC)
}
