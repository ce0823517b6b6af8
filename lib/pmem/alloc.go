package pmem

import (
	"encoding/binary"
)

// --------------------------------------------------------------------------
// Heap Allocator
// --------------------------------------------------------------------------

// Every heap block carries a 16-byte header:
//
//	size u64   total block size including the header
//	next PPtr  next free block, meaningful only while the block is free
//
// The PPtr handed to callers points at the usable space behind the header.
// Allocation is first-fit over the free list with a bump pointer fallback;
// blocks are split when the remainder can hold another block.
const (
	blockHdrSize  = 16
	minBlockSize  = blockHdrSize + 16
	allocAlign    = 8
)

// Alloc allocates n usable bytes inside the transaction and returns a
// pointer to zeroed space. The allocation disappears if the transaction
// aborts.
func (tx *Tx) Alloc(n int) (PPtr, error) {
	if tx.done || tx.pool.tx != tx {
		return 0, ErrTxScope
	}
	if n < 0 {
		return 0, ErrNoSpace
	}

	total := uint64(blockHdrSize + alignUp(n))
	if total < minBlockSize {
		total = minBlockSize
	}

	block, err := tx.pool.takeFree(tx, total)
	if err != nil {
		return 0, err
	}
	if block.IsNull() {
		block, err = tx.pool.takeBrk(tx, total)
		if err != nil {
			return 0, err
		}
	}

	usable := PPtr(uint64(block) + blockHdrSize)
	size := tx.pool.blockSize(block)
	zero(tx.pool.View(usable, int(size-blockHdrSize)))

	tx.logged[usable] = int(size - blockHdrSize) // fresh space needs no undo
	return usable, nil
}

func alignUp(n int) int {
	return (n + allocAlign - 1) &^ (allocAlign - 1)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// blockSize reads the total size of the block whose header starts at the
// given offset.
func (p *Pool) blockSize(block PPtr) uint64 {
	return binary.LittleEndian.Uint64(p.View(block, 8))
}

// UsableSize returns the usable byte count of an allocation.
func (p *Pool) UsableSize(off PPtr) int {
	block := PPtr(uint64(off) - blockHdrSize)
	return int(p.blockSize(block) - blockHdrSize)
}

// takeFree scans the free list for the first block of at least total bytes,
// unlinks it, and splits off the remainder when large enough.
func (p *Pool) takeFree(tx *Tx, total uint64) (PPtr, error) {
	prev := PPtr(0)
	cur := PPtr(binary.LittleEndian.Uint64(p.data[offFreeHead:]))
	for !cur.IsNull() {
		size := p.blockSize(cur)
		next := PPtr(binary.LittleEndian.Uint64(p.View(PPtr(uint64(cur)+8), 8)))
		if size < total {
			prev, cur = cur, next
			continue
		}

		// unlink cur
		if prev.IsNull() {
			if err := tx.Snapshot(PPtr(offFreeHead), 8); err != nil {
				return 0, err
			}
			binary.LittleEndian.PutUint64(p.data[offFreeHead:], uint64(next))
		} else {
			link, err := tx.Mutable(PPtr(uint64(prev)+8), 8)
			if err != nil {
				return 0, err
			}
			binary.LittleEndian.PutUint64(link, uint64(next))
		}

		if size-total >= minBlockSize {
			// split: tail remainder becomes a new free block
			rest := PPtr(uint64(cur) + total)
			hdr, err := tx.Mutable(rest, blockHdrSize)
			if err != nil {
				return 0, err
			}
			binary.LittleEndian.PutUint64(hdr, size-total)
			if err := p.pushFree(tx, rest); err != nil {
				return 0, err
			}
			szHdr, err := tx.Mutable(cur, 8)
			if err != nil {
				return 0, err
			}
			binary.LittleEndian.PutUint64(szHdr, total)
		}
		return cur, nil
	}
	return 0, nil
}

// takeBrk extends the allocated region by total bytes.
func (p *Pool) takeBrk(tx *Tx, total uint64) (PPtr, error) {
	brk := binary.LittleEndian.Uint64(p.data[offBrk:])
	if brk+total > p.size {
		return 0, ErrNoSpace
	}
	if err := tx.Snapshot(PPtr(offBrk), 8); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint64(p.data[offBrk:], brk+total)

	block := PPtr(brk)
	hdr, err := tx.Mutable(block, 8)
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint64(hdr, total)
	return block, nil
}

// pushFree links the block onto the free list head.
func (p *Pool) pushFree(tx *Tx, block PPtr) error {
	head := binary.LittleEndian.Uint64(p.data[offFreeHead:])
	link, err := tx.Mutable(PPtr(uint64(block)+8), 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(link, head)
	if err := tx.Snapshot(PPtr(offFreeHead), 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(p.data[offFreeHead:], uint64(block))
	return nil
}

// freeBlock returns an allocation to the free list. Called during commit
// for frees deferred by Tx.Free.
func (p *Pool) freeBlock(tx *Tx, off PPtr) error {
	block := PPtr(uint64(off) - blockHdrSize)
	return p.pushFree(tx, block)
}
