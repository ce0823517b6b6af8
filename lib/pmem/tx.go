package pmem

import (
	"encoding/binary"
)

// --------------------------------------------------------------------------
// Transaction
// --------------------------------------------------------------------------

// undo log layout inside the reserved region:
//
//	count u64                       number of complete entries
//	entry: off u64, len u64, data   appended sequentially
//
// An entry becomes visible only when count is incremented after its data is
// durable, so a torn entry is never replayed.
const undoEntryHdr = 16

// Tx is a single all-or-nothing unit of pool mutation. At most one
// transaction runs per pool at any time.
type Tx struct {
	pool *Pool
	tail uint64 // write position inside the undo region
	n    uint64 // committed entry count mirror

	frees  []PPtr // blocks to release, applied at commit
	logged map[PPtr]int
	done   bool
}

// Begin starts a transaction. A second Begin before Commit or Abort fails
// with ErrTxScope.
func (p *Pool) Begin() (*Tx, error) {
	if p.tx != nil {
		return nil, ErrTxScope
	}
	tx := &Tx{
		pool:   p,
		tail:   p.undoOff + 8,
		logged: make(map[PPtr]int),
	}
	p.tx = tx
	return tx, nil
}

// RunTx runs fn inside a transaction, committing on nil return and aborting
// when fn returns an error or panics.
func (p *Pool) RunTx(fn func(tx *Tx) error) (err error) {
	tx, err := p.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Abort()
			panic(r)
		}
	}()
	if err = fn(tx); err != nil {
		_ = tx.Abort()
		return err
	}
	return tx.Commit()
}

// Snapshot records the current contents of [off, off+n) in the undo log so
// an abort or crash restores them. Ranges already snapshotted by this
// transaction are skipped.
func (tx *Tx) Snapshot(off PPtr, n int) error {
	if tx.done || tx.pool.tx != tx {
		return ErrTxScope
	}
	if prev, ok := tx.logged[off]; ok && prev >= n {
		return nil
	}

	need := uint64(undoEntryHdr + n)
	if tx.tail+need > tx.pool.undoOff+tx.pool.undoCap {
		return ErrNoSpace
	}

	data := tx.pool.data
	entryStart := tx.tail
	binary.LittleEndian.PutUint64(data[tx.tail:], uint64(off))
	binary.LittleEndian.PutUint64(data[tx.tail+8:], uint64(n))
	copy(data[tx.tail+undoEntryHdr:], tx.pool.View(off, n))
	tx.tail += need

	// entry first, count after: a crash in between leaves the entry
	// invisible to recovery
	if err := tx.pool.syncRange(entryStart, need); err != nil {
		return err
	}
	tx.n++
	binary.LittleEndian.PutUint64(data[tx.pool.undoOff:], tx.n)
	if err := tx.pool.syncRange(tx.pool.undoOff, 8); err != nil {
		return err
	}

	tx.logged[off] = n
	return nil
}

// Mutable snapshots [off, off+n) and returns a writable view of it.
func (tx *Tx) Mutable(off PPtr, n int) ([]byte, error) {
	if err := tx.Snapshot(off, n); err != nil {
		return nil, err
	}
	return tx.pool.View(off, n), nil
}

// Free schedules the block at off for release. The free list is only
// touched at commit, so an aborted transaction leaves the block live.
func (tx *Tx) Free(off PPtr) error {
	if tx.done || tx.pool.tx != tx {
		return ErrTxScope
	}
	if off.IsNull() {
		return nil
	}
	tx.frees = append(tx.frees, off)
	return nil
}

// Commit applies deferred frees, flushes the mapping, and truncates the
// undo log. Once the log is empty the transaction is durable.
func (tx *Tx) Commit() error {
	if tx.done || tx.pool.tx != tx {
		return ErrTxScope
	}
	for _, off := range tx.frees {
		if err := tx.pool.freeBlock(tx, off); err != nil {
			_ = tx.Abort()
			return err
		}
	}
	if err := tx.pool.sync(); err != nil {
		_ = tx.Abort()
		return err
	}
	return tx.finish()
}

// Abort restores every snapshotted range and releases blocks allocated in
// this transaction.
func (tx *Tx) Abort() error {
	if tx.done || tx.pool.tx != tx {
		return ErrTxScope
	}
	tx.pool.rollback()
	return tx.finish()
}

// finish truncates the undo log and detaches the transaction.
func (tx *Tx) finish() error {
	data := tx.pool.data
	binary.LittleEndian.PutUint64(data[tx.pool.undoOff:], 0)
	err := tx.pool.sync()
	tx.done = true
	tx.pool.tx = nil
	return err
}

// --------------------------------------------------------------------------
// Crash Recovery
// --------------------------------------------------------------------------

// rollback applies the undo log newest-first.
func (p *Pool) rollback() {
	data := p.data
	count := binary.LittleEndian.Uint64(data[p.undoOff:])
	if count == 0 {
		return
	}

	// collect entry positions, then restore in reverse
	type entry struct {
		off PPtr
		n   uint64
		pos uint64
	}
	entries := make([]entry, 0, count)
	pos := p.undoOff + 8
	for i := uint64(0); i < count; i++ {
		off := PPtr(binary.LittleEndian.Uint64(data[pos:]))
		n := binary.LittleEndian.Uint64(data[pos+8:])
		entries = append(entries, entry{off: off, n: n, pos: pos + undoEntryHdr})
		pos += undoEntryHdr + n
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		copy(data[e.off:uint64(e.off)+e.n], data[e.pos:e.pos+e.n])
	}
}

// recoverUndo rolls back an interrupted transaction found at open time.
func (p *Pool) recoverUndo() error {
	if binary.LittleEndian.Uint64(p.data[p.undoOff:]) == 0 {
		return nil
	}
	p.rollback()
	binary.LittleEndian.PutUint64(p.data[p.undoOff:], 0)
	return p.sync()
}
