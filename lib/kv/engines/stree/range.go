package stree

import (
	"bytes"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/engines/stree/internal"
)

// --------------------------------------------------------------------------
// Range Engine
// --------------------------------------------------------------------------

// Range operations visit records in ascending byte-lexicographic key
// order. Between bounds are exclusive on both ends.

// record returns caller-owned copies of the key and value at a slot.
func (e *engine) record(leaf *internal.Leaf, slot int) (k, v []byte) {
	k = append([]byte(nil), leaf.Keys[slot]...)
	v = append([]byte(nil), e.leaf(leaf.Leaf).slotValue(slot)...)
	return k, v
}

// countWhere counts the records matching pred, stopping early once done
// reports that no further key can match.
func (e *engine) countWhere(pred, done func(key []byte) bool) uint64 {
	var cnt uint64
	internal.Ascend(e.top, func(leaf *internal.Leaf, slot int) bool {
		key := leaf.Keys[slot]
		if done != nil && done(key) {
			return false
		}
		if pred(key) {
			cnt++
		}
		return true
	})
	return cnt
}

func (e *engine) CountAll() (uint64, kv.Status) {
	logger.Debugf("count_all")
	return e.countWhere(func([]byte) bool { return true }, nil), kv.StatusOK
}

func (e *engine) CountAbove(key []byte) (uint64, kv.Status) {
	logger.Debugf("count_above key=%q", key)
	return e.countWhere(func(k []byte) bool { return bytes.Compare(k, key) > 0 }, nil), kv.StatusOK
}

func (e *engine) CountEqualAbove(key []byte) (uint64, kv.Status) {
	logger.Debugf("count_equal_above key=%q", key)
	return e.countWhere(func(k []byte) bool { return bytes.Compare(k, key) >= 0 }, nil), kv.StatusOK
}

func (e *engine) CountBelow(key []byte) (uint64, kv.Status) {
	logger.Debugf("count_below key=%q", key)
	return e.countWhere(
		func(k []byte) bool { return bytes.Compare(k, key) < 0 },
		func(k []byte) bool { return bytes.Compare(k, key) >= 0 },
	), kv.StatusOK
}

func (e *engine) CountEqualBelow(key []byte) (uint64, kv.Status) {
	logger.Debugf("count_equal_below key=%q", key)
	return e.countWhere(
		func(k []byte) bool { return bytes.Compare(k, key) <= 0 },
		func(k []byte) bool { return bytes.Compare(k, key) > 0 },
	), kv.StatusOK
}

func (e *engine) CountBetween(k1, k2 []byte) (uint64, kv.Status) {
	logger.Debugf("count_between range=(%q,%q)", k1, k2)
	return e.countWhere(
		func(k []byte) bool { return bytes.Compare(k, k1) > 0 && bytes.Compare(k, k2) < 0 },
		func(k []byte) bool { return bytes.Compare(k, k2) >= 0 },
	), kv.StatusOK
}

// getWhere streams the records matching pred to cb in ascending key
// order.
func (e *engine) getWhere(pred, done func(key []byte) bool, cb kv.EachFunc) kv.Status {
	stopped := false
	internal.Ascend(e.top, func(leaf *internal.Leaf, slot int) bool {
		key := leaf.Keys[slot]
		if done != nil && done(key) {
			return false
		}
		if !pred(key) {
			return true
		}
		if cb(key, e.leaf(leaf.Leaf).slotValue(slot)) != 0 {
			stopped = true
			return false
		}
		return true
	})
	if stopped {
		return kv.StatusStoppedByCallback
	}
	return kv.StatusOK
}

func (e *engine) GetAll(cb kv.EachFunc) kv.Status {
	logger.Debugf("get_all")
	return e.getWhere(func([]byte) bool { return true }, nil, cb)
}

func (e *engine) GetAbove(key []byte, cb kv.EachFunc) kv.Status {
	logger.Debugf("get_above key=%q", key)
	return e.getWhere(func(k []byte) bool { return bytes.Compare(k, key) > 0 }, nil, cb)
}

func (e *engine) GetEqualAbove(key []byte, cb kv.EachFunc) kv.Status {
	logger.Debugf("get_equal_above key=%q", key)
	return e.getWhere(func(k []byte) bool { return bytes.Compare(k, key) >= 0 }, nil, cb)
}

func (e *engine) GetBelow(key []byte, cb kv.EachFunc) kv.Status {
	logger.Debugf("get_below key=%q", key)
	return e.getWhere(
		func(k []byte) bool { return bytes.Compare(k, key) < 0 },
		func(k []byte) bool { return bytes.Compare(k, key) >= 0 },
		cb,
	)
}

func (e *engine) GetEqualBelow(key []byte, cb kv.EachFunc) kv.Status {
	logger.Debugf("get_equal_below key=%q", key)
	return e.getWhere(
		func(k []byte) bool { return bytes.Compare(k, key) <= 0 },
		func(k []byte) bool { return bytes.Compare(k, key) > 0 },
		cb,
	)
}

func (e *engine) GetBetween(k1, k2 []byte, cb kv.EachFunc) kv.Status {
	logger.Debugf("get_between range=(%q,%q)", k1, k2)
	return e.getWhere(
		func(k []byte) bool { return bytes.Compare(k, k1) > 0 && bytes.Compare(k, k2) < 0 },
		func(k []byte) bool { return bytes.Compare(k, k2) >= 0 },
		cb,
	)
}

// --------------------------------------------------------------------------
// Cursor-Style Boundary Queries
// --------------------------------------------------------------------------

// firstWhere returns the smallest record whose key satisfies pred.
func (e *engine) firstWhere(pred func(key []byte) bool) (k, v []byte, ok bool) {
	internal.Ascend(e.top, func(leaf *internal.Leaf, slot int) bool {
		if !pred(leaf.Keys[slot]) {
			return true
		}
		k, v = e.record(leaf, slot)
		ok = true
		return false
	})
	return k, v, ok
}

// UpperBound returns the smallest record with key strictly greater than
// key.
func (e *engine) UpperBound(key []byte) (k, v []byte, ok bool) {
	logger.Debugf("upper_bound key=%q", key)
	return e.firstWhere(func(c []byte) bool { return bytes.Compare(c, key) > 0 })
}

// LowerBound returns the smallest record with key greater than or equal
// to key.
func (e *engine) LowerBound(key []byte) (k, v []byte, ok bool) {
	logger.Debugf("lower_bound key=%q", key)
	return e.firstWhere(func(c []byte) bool { return bytes.Compare(c, key) >= 0 })
}

// GetBegin returns the smallest record.
func (e *engine) GetBegin() (k, v []byte, ok bool) {
	logger.Debugf("get_begin")
	return e.firstWhere(func([]byte) bool { return true })
}

// GetNext returns the smallest record with key strictly greater than key.
func (e *engine) GetNext(key []byte) (k, v []byte, ok bool) {
	logger.Debugf("get_next key=%q", key)
	return e.firstWhere(func(c []byte) bool { return bytes.Compare(c, key) > 0 })
}

// GetPrev returns the largest record with key strictly less than key.
func (e *engine) GetPrev(key []byte) (k, v []byte, ok bool) {
	logger.Debugf("get_prev key=%q", key)
	var (
		lastLeaf *internal.Leaf
		lastSlot int
	)
	internal.Ascend(e.top, func(leaf *internal.Leaf, slot int) bool {
		if bytes.Compare(leaf.Keys[slot], key) >= 0 {
			return false
		}
		lastLeaf, lastSlot = leaf, slot
		return true
	})
	if lastLeaf == nil {
		return nil, nil, false
	}
	k, v = e.record(lastLeaf, lastSlot)
	return k, v, true
}
