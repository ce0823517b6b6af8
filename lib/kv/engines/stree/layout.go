package stree

import (
	"encoding/binary"

	"github.com/ValentinKolb/nvKV/lib/kv/engines/stree/internal"
	"github.com/ValentinKolb/nvKV/lib/pmem"
)

// --------------------------------------------------------------------------
// On-Media Layout
// --------------------------------------------------------------------------

// All persistent structures are little endian and addressed by pool-
// relative pointers.
//
//	root:  head PPtr                               8 bytes
//	leaf:  slots[LeafKeys] followed by next PPtr
//	slot:  hash u8, pad[3], keySize u32, valueSize u32, pad[4], buffer PPtr
//	buffer: key bytes, 0x00, value bytes, 0x00
//
// A slot is empty iff its hash is zero iff its buffer is null.
const (
	slotHashOff  = 0
	slotKeySzOff = 4
	slotValSzOff = 8
	slotBufOff   = 16
	slotSize     = 24

	leafNextOff = internal.LeafKeys * slotSize
	leafSize    = leafNextOff + 8

	rootSize = 8
)

// proot is the persistent root object: the anchor of the leaf chain.
type proot struct {
	pool *pmem.Pool
	off  pmem.PPtr
}

func (r proot) head() pmem.PPtr {
	return pmem.PPtr(binary.LittleEndian.Uint64(r.pool.View(r.off, 8)))
}

func (r proot) setHead(tx *pmem.Tx, leaf pmem.PPtr) error {
	buf, err := tx.Mutable(r.off, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf, uint64(leaf))
	return nil
}

// --------------------------------------------------------------------------
// Persistent Leaf
// --------------------------------------------------------------------------

// pleaf is a typed view of one persistent leaf.
type pleaf struct {
	pool *pmem.Pool
	off  pmem.PPtr
}

func (l pleaf) slotOff(i int) pmem.PPtr {
	return pmem.PPtr(uint64(l.off) + uint64(i*slotSize))
}

func (l pleaf) slotHash(i int) uint8 {
	return l.pool.View(l.slotOff(i), 1)[0]
}

func (l pleaf) slotSizes(i int) (keySize, valueSize uint32) {
	slot := l.pool.View(l.slotOff(i), slotSize)
	return binary.LittleEndian.Uint32(slot[slotKeySzOff:]),
		binary.LittleEndian.Uint32(slot[slotValSzOff:])
}

func (l pleaf) slotBuffer(i int) pmem.PPtr {
	slot := l.pool.View(l.slotOff(i), slotSize)
	return pmem.PPtr(binary.LittleEndian.Uint64(slot[slotBufOff:]))
}

// slotKey returns the key bytes of a non-empty slot. The slice aliases
// pool memory.
func (l pleaf) slotKey(i int) []byte {
	keySize, _ := l.slotSizes(i)
	return l.pool.View(l.slotBuffer(i), int(keySize))
}

// slotValue returns the value bytes of a non-empty slot. The slice aliases
// pool memory.
func (l pleaf) slotValue(i int) []byte {
	keySize, valueSize := l.slotSizes(i)
	buf := l.pool.View(l.slotBuffer(i), int(keySize)+1+int(valueSize))
	return buf[keySize+1:]
}

func (l pleaf) next() pmem.PPtr {
	return pmem.PPtr(binary.LittleEndian.Uint64(l.pool.View(pmem.PPtr(uint64(l.off)+leafNextOff), 8)))
}

func (l pleaf) setNext(tx *pmem.Tx, next pmem.PPtr) error {
	buf, err := tx.Mutable(pmem.PPtr(uint64(l.off)+leafNextOff), 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf, uint64(next))
	return nil
}

// setSlot writes a record into slot i: any existing buffer is freed, a new
// packed [key 0x00 value 0x00] buffer is allocated, and the slot fields
// are updated. Must run inside tx; a rollback restores the previous slot
// state and releases the partial allocation.
func (l pleaf) setSlot(tx *pmem.Tx, i int, hash uint8, key, value []byte) error {
	slot, err := tx.Mutable(l.slotOff(i), slotSize)
	if err != nil {
		return err
	}

	if old := pmem.PPtr(binary.LittleEndian.Uint64(slot[slotBufOff:])); !old.IsNull() {
		if err := tx.Free(old); err != nil {
			return err
		}
	}

	size := len(key) + len(value) + 2
	buffer, err := tx.Alloc(size)
	if err != nil {
		return err
	}
	packed, err := tx.Mutable(buffer, size)
	if err != nil {
		return err
	}
	copy(packed, key)
	packed[len(key)] = 0
	copy(packed[len(key)+1:], value)
	packed[size-1] = 0

	slot[slotHashOff] = hash
	binary.LittleEndian.PutUint32(slot[slotKeySzOff:], uint32(len(key)))
	binary.LittleEndian.PutUint32(slot[slotValSzOff:], uint32(len(value)))
	binary.LittleEndian.PutUint64(slot[slotBufOff:], uint64(buffer))
	return nil
}

// clearSlot frees the buffer of slot i and zeroes all fields.
func (l pleaf) clearSlot(tx *pmem.Tx, i int) error {
	slot, err := tx.Mutable(l.slotOff(i), slotSize)
	if err != nil {
		return err
	}
	if buffer := pmem.PPtr(binary.LittleEndian.Uint64(slot[slotBufOff:])); !buffer.IsNull() {
		if err := tx.Free(buffer); err != nil {
			return err
		}
	}
	for b := range slot {
		slot[b] = 0
	}
	return nil
}

// moveSlot transfers slot i to the same index of dst by swapping the
// buffer pointer, leaving the source slot empty. No payload is copied.
func (l pleaf) moveSlot(tx *pmem.Tx, i int, dst pleaf) error {
	src, err := tx.Mutable(l.slotOff(i), slotSize)
	if err != nil {
		return err
	}
	dstSlot, err := tx.Mutable(dst.slotOff(i), slotSize)
	if err != nil {
		return err
	}
	copy(dstSlot, src)
	for b := range src {
		src[b] = 0
	}
	return nil
}
