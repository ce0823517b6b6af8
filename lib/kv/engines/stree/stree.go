package stree

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	"github.com/ValentinKolb/nvKV/lib/kv/engines/stree/internal"
	"github.com/ValentinKolb/nvKV/lib/logging"
	"github.com/ValentinKolb/nvKV/lib/pmem"
)

// --------------------------------------------------------------------------
// Engine Registration and Configuration
// --------------------------------------------------------------------------

// EngineName is the registry name and the pool layout tag.
const EngineName = "stree"

var logger = logging.GetLogger("stree")

func init() {
	kv.Register(EngineName, open)
}

// open validates the configuration bag, creates or maps the pool, and
// rebuilds the volatile index from the persistent leaf chain.
func open(cfg *config.Config) (kv.Engine, error) {
	if cfg == nil {
		return nil, kv.NewError(kv.StatusInvalidArgument,
			fmt.Sprintf("config cannot be nil for the %q engine", EngineName))
	}

	for _, key := range cfg.Keys() {
		switch key {
		case "path", "size", "force_create":
		default:
			cfg.Release()
			return nil, kv.NewError(kv.StatusConfigParsingError,
				fmt.Sprintf("unknown config option %q", key))
		}
	}

	path, ok, err := cfg.GetString("path")
	if err != nil {
		cfg.Release()
		return nil, kv.NewError(kv.StatusConfigTypeError, err.Error())
	}
	if !ok {
		cfg.Release()
		return nil, kv.NewError(kv.StatusConfigParsingError,
			`config does not contain item with key "path"`)
	}

	size, ok, err := cfg.GetUint64("size")
	if err != nil {
		cfg.Release()
		return nil, kv.NewError(kv.StatusConfigTypeError, err.Error())
	}
	if !ok {
		size = pmem.MinPoolSize
	}

	forceCreate, _, err := cfg.GetUint64("force_create")
	if err != nil {
		cfg.Release()
		return nil, kv.NewError(kv.StatusConfigTypeError, err.Error())
	}

	pool, err := openPool(path, size, forceCreate != 0)
	if err != nil {
		cfg.Release()
		return nil, err
	}

	e := &engine{cfg: cfg, pool: pool}
	if err := e.recover(); err != nil {
		_ = pool.Close()
		cfg.Release()
		return nil, err
	}

	logger.Debugf("started ok (pool %s, %d bytes)", pool.Path(), pool.Size())
	return e, nil
}

// openPool maps an existing pool or creates a fresh one when the file does
// not exist yet. force_create overwrites whatever is at the path.
func openPool(path string, size uint64, forceCreate bool) (*pmem.Pool, error) {
	create := forceCreate
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			create = true
		}
	}

	var (
		pool *pmem.Pool
		err  error
	)
	if create {
		pool, err = pmem.Create(path, EngineName, size)
	} else {
		pool, err = pmem.Open(path, EngineName)
	}
	if err != nil {
		return nil, poolError(err)
	}
	return pool, nil
}

// poolError maps pmem failures onto the public status taxonomy.
func poolError(err error) error {
	switch {
	case errors.Is(err, pmem.ErrLayout):
		return kv.NewError(kv.StatusWrongEngineName, err.Error())
	case errors.Is(err, pmem.ErrNoSpace):
		return kv.NewError(kv.StatusOutOfMemory, err.Error())
	case errors.Is(err, pmem.ErrTxScope):
		return kv.NewError(kv.StatusTransactionScope, err.Error())
	case errors.Is(err, pmem.ErrTooSmall):
		return kv.NewError(kv.StatusInvalidArgument, err.Error())
	default:
		return kv.NewError(kv.StatusUnknownError, err.Error())
	}
}

// txStatus maps a transactional write failure onto a Status, leaving both
// persistent and volatile state untouched by contract.
func txStatus(err error) kv.Status {
	return kv.StatusOf(poolError(err))
}

// --------------------------------------------------------------------------
// Engine State
// --------------------------------------------------------------------------

// engine is the hybrid B+-tree: persistent leaves anchored in the pool
// root, indexed by a volatile tree that is rebuilt on every open.
//
// Thread-safety: the engine is single-writer, single-reader; callers
// serialize externally (the store package adds a guard).
type engine struct {
	cfg  *config.Config
	pool *pmem.Pool
	root proot
	top  internal.Node // nil until the first record exists
	free []pmem.PPtr   // empty persistent leaves available for reuse
}

func (e *engine) Name() string { return EngineName }

// Close drops the volatile index and closes the pool. Persistent state is
// untouched.
func (e *engine) Close() error {
	e.top = nil
	e.free = nil
	err := e.pool.Close()
	e.cfg.Release()
	logger.Debugf("stopped ok")
	return err
}

func (e *engine) leaf(off pmem.PPtr) pleaf {
	return pleaf{pool: e.pool, off: off}
}

// --------------------------------------------------------------------------
// Recovery
// --------------------------------------------------------------------------

// recover walks the persistent leaf chain and rebuilds the volatile index:
// descriptors are mirrored from the surviving leaves, empty leaves feed
// the free list, and the non-empty ones are linked ascending by their
// maximum key through the same propagation path a split uses.
func (e *engine) recover() error {
	err := e.pool.RunTx(func(tx *pmem.Tx) error {
		root, err := e.pool.EnsureRoot(tx, rootSize)
		if err != nil {
			return err
		}
		e.root = proot{pool: e.pool, off: root}
		return nil
	})
	if err != nil {
		return poolError(err)
	}

	type recovered struct {
		desc   *internal.Leaf
		maxKey []byte
	}
	var survivors []recovered

	for off := e.root.head(); !off.IsNull(); off = e.leaf(off).next() {
		pl := e.leaf(off)
		desc := &internal.Leaf{Leaf: off}
		for i := 0; i < internal.LeafKeys; i++ {
			hash := pl.slotHash(i)
			if hash == 0 {
				continue
			}
			desc.Hashes[i] = hash
			desc.Keys[i] = append([]byte(nil), pl.slotKey(i)...)
		}
		// emptiness is judged by the hash array: MaxKey is nil for the
		// empty-string key too, which is a live record
		if desc.Empty() {
			e.free = append(e.free, off)
		} else {
			survivors = append(survivors, recovered{desc: desc, maxKey: desc.MaxKey()})
		}
	}

	sort.Slice(survivors, func(a, b int) bool {
		return bytes.Compare(survivors[a].maxKey, survivors[b].maxKey) < 0
	})

	for i, token := range survivors {
		if i == 0 {
			e.top = token.desc
			continue
		}
		e.top = internal.Promote(e.top, survivors[i-1].desc, token.desc, survivors[i-1].maxKey)
	}

	logger.Debugf("recovered %d leaves (%d free)", len(survivors), len(e.free))
	return nil
}

// --------------------------------------------------------------------------
// Point Operations
// --------------------------------------------------------------------------

// Get looks up key and hands its value to cb.
func (e *engine) Get(key []byte, cb kv.GetFunc) kv.Status {
	logger.Debugf("get key=%q", key)
	desc, slot := e.find(key)
	if slot < 0 {
		return kv.StatusNotFound
	}
	cb(e.leaf(desc.Leaf).slotValue(slot))
	return kv.StatusOK
}

// Exists reports whether key is present.
func (e *engine) Exists(key []byte) kv.Status {
	logger.Debugf("exists key=%q", key)
	if _, slot := e.find(key); slot < 0 {
		return kv.StatusNotFound
	}
	return kv.StatusOK
}

// find descends to the responsible leaf descriptor and locates the slot
// holding key, returning slot -1 when absent.
func (e *engine) find(key []byte) (*internal.Leaf, int) {
	if e.top == nil {
		return nil, -1
	}
	desc := internal.Descend(e.top, key)
	return desc, desc.FindSlot(internal.PearsonHash(key), key)
}

// Put inserts or updates a record. The persistent mutation is a single
// transaction; the descriptor mirror is only updated after commit.
func (e *engine) Put(key, value []byte) kv.Status {
	logger.Debugf("put key=%q value.size=%d", key, len(value))
	hash := internal.PearsonHash(key)

	if e.top == nil {
		desc := &internal.Leaf{}
		var leafOff pmem.PPtr
		usedFree := false
		err := e.pool.RunTx(func(tx *pmem.Tx) error {
			var err error
			leafOff, usedFree, err = e.obtainLeaf(tx)
			if err != nil {
				return err
			}
			return e.leaf(leafOff).setSlot(tx, 0, hash, key, value)
		})
		if err != nil {
			return txStatus(err)
		}
		if usedFree {
			e.free = e.free[:len(e.free)-1]
		}
		desc.Leaf = leafOff
		desc.Hashes[0] = hash
		desc.Keys[0] = append([]byte(nil), key...)
		e.top = desc
		return kv.StatusOK
	}

	desc := internal.Descend(e.top, key)
	slot := desc.PickSlot(hash, key)
	if slot < 0 {
		return e.split(desc, hash, key, value)
	}

	err := e.pool.RunTx(func(tx *pmem.Tx) error {
		return e.leaf(desc.Leaf).setSlot(tx, slot, hash, key, value)
	})
	if err != nil {
		return txStatus(err)
	}
	desc.Hashes[slot] = hash
	desc.Keys[slot] = append([]byte(nil), key...)
	return kv.StatusOK
}

// Remove deletes a record by clearing its slot. Removing an absent key is
// a no-op success.
func (e *engine) Remove(key []byte) kv.Status {
	logger.Debugf("remove key=%q", key)
	desc, slot := e.find(key)
	if slot < 0 {
		return kv.StatusOK
	}
	err := e.pool.RunTx(func(tx *pmem.Tx) error {
		return e.leaf(desc.Leaf).clearSlot(tx, slot)
	})
	if err != nil {
		return txStatus(err)
	}
	desc.Hashes[slot] = 0
	desc.Keys[slot] = nil
	return kv.StatusOK
}

// --------------------------------------------------------------------------
// Leaf Split
// --------------------------------------------------------------------------

// obtainLeaf returns a persistent leaf for new data: the top of the free
// list when available (free leaves are already part of the chain), else a
// fresh allocation prepended at root.head. The free list itself is only
// popped by the caller after the transaction commits.
func (e *engine) obtainLeaf(tx *pmem.Tx) (off pmem.PPtr, usedFree bool, err error) {
	if n := len(e.free); n > 0 {
		return e.free[n-1], true, nil
	}
	off, err = tx.Alloc(leafSize)
	if err != nil {
		return 0, false, err
	}
	if err = e.leaf(off).setNext(tx, e.root.head()); err != nil {
		return 0, false, err
	}
	if err = e.root.setHead(tx, off); err != nil {
		return 0, false, err
	}
	return off, false, nil
}

// split divides a full leaf around the lower median of its keys plus the
// incoming key, moves the upper half into a second persistent leaf inside
// one transaction, and propagates the separator into the volatile index
// after commit.
func (e *engine) split(desc *internal.Leaf, hash uint8, key, value []byte) kv.Status {
	// lower median over the 49 candidate keys
	candidates := make([][]byte, 0, internal.LeafKeys+1)
	for i := 0; i < internal.LeafKeys; i++ {
		candidates = append(candidates, desc.Keys[i])
	}
	candidates = append(candidates, key)
	sort.Slice(candidates, func(a, b int) bool {
		return bytes.Compare(candidates[a], candidates[b]) < 0
	})
	splitKey := append([]byte(nil), candidates[internal.LeafMidpoint]...)

	// slots whose keys sort strictly above the median move; the median
	// itself stays left so the old leaf keeps at least one record
	var moved []int
	occupied := [internal.LeafKeys]bool{}
	for i := 0; i < internal.LeafKeys; i++ {
		if bytes.Compare(desc.Keys[i], splitKey) > 0 {
			moved = append(moved, i)
		} else {
			occupied[i] = true
		}
	}

	// pick the slot for the incoming record in the staged layout: first
	// empty slot in reverse scan of whichever side receives it
	intoNew := bytes.Compare(key, splitKey) > 0
	target := -1
	if intoNew {
		isMoved := [internal.LeafKeys]bool{}
		for _, i := range moved {
			isMoved[i] = true
		}
		for i := internal.LeafKeys - 1; i >= 0; i-- {
			if !isMoved[i] {
				target = i
				break
			}
		}
	} else {
		for i := internal.LeafKeys - 1; i >= 0; i-- {
			if !occupied[i] {
				target = i
				break
			}
		}
	}

	var newLeafOff pmem.PPtr
	usedFree := false
	err := e.pool.RunTx(func(tx *pmem.Tx) error {
		var err error
		newLeafOff, usedFree, err = e.obtainLeaf(tx)
		if err != nil {
			return err
		}
		newLeaf := e.leaf(newLeafOff)
		oldLeaf := e.leaf(desc.Leaf)
		for _, i := range moved {
			if err := oldLeaf.moveSlot(tx, i, newLeaf); err != nil {
				return err
			}
		}
		if intoNew {
			return newLeaf.setSlot(tx, target, hash, key, value)
		}
		return oldLeaf.setSlot(tx, target, hash, key, value)
	})
	if err != nil {
		return txStatus(err)
	}
	if usedFree {
		e.free = e.free[:len(e.free)-1]
	}

	// committed: mirror the slot moves, then rebalance the volatile index
	next := &internal.Leaf{Leaf: newLeafOff}
	next.SetParent(desc.Parent())
	for _, i := range moved {
		next.Hashes[i] = desc.Hashes[i]
		next.Keys[i] = desc.Keys[i]
		desc.Hashes[i] = 0
		desc.Keys[i] = nil
	}
	if intoNew {
		next.Hashes[target] = hash
		next.Keys[target] = append([]byte(nil), key...)
	} else {
		desc.Hashes[target] = hash
		desc.Keys[target] = append([]byte(nil), key...)
	}

	e.top = internal.Promote(e.top, desc, next, splitKey)
	return kv.StatusOK
}

// --------------------------------------------------------------------------
// Defrag
// --------------------------------------------------------------------------

// Defrag validates its arguments but compaction itself is not provided by
// this engine.
func (e *engine) Defrag(startPercent, amountPercent uint) kv.Status {
	if startPercent > 100 || amountPercent > 100 {
		return kv.StatusInvalidArgument
	}
	return kv.StatusNotSupported
}
