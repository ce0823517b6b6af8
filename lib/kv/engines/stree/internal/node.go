package internal

import (
	"bytes"
	"sort"

	"github.com/ValentinKolb/nvKV/lib/pmem"
)

// --------------------------------------------------------------------------
// Fan-Out Constants
// --------------------------------------------------------------------------

const (
	// LeafKeys is the slot capacity of a persistent leaf.
	LeafKeys = 48
	// LeafMidpoint is the lower-median index over LeafKeys+1 candidates
	// during a leaf split.
	LeafMidpoint = LeafKeys / 2
	// InnerKeys is the separator capacity of an inner node.
	InnerKeys = 4
	// InnerMidpoint is the key count each side retains after an inner
	// split; the key at this index is promoted.
	InnerMidpoint = InnerKeys / 2
	// InnerUpper is the index of the first key moved to the right node.
	InnerUpper = InnerMidpoint + 1
)

// --------------------------------------------------------------------------
// Volatile Node Kinds
// --------------------------------------------------------------------------

// Node is the traversal entry shared by the two volatile node kinds. The
// tree is owned top-down through child references; Parent is a non-owning
// upward link.
type Node interface {
	Parent() *Inner
	SetParent(p *Inner)
}

// Inner is a volatile index node holding up to InnerKeys separator keys.
// Every key reachable under Children[i] is <= Keys[i], everything under
// Children[i+1] is > Keys[i]. During a split the slices temporarily hold
// one extra element.
type Inner struct {
	parent   *Inner
	Keys     [][]byte
	Children []Node
}

// NewInner returns an inner node with room for one overflow entry.
func NewInner() *Inner {
	return &Inner{
		Keys:     make([][]byte, 0, InnerKeys+1),
		Children: make([]Node, 0, InnerKeys+2),
	}
}

func (n *Inner) Parent() *Inner     { return n.parent }
func (n *Inner) SetParent(p *Inner) { n.parent = p }

// ChildFor returns the child to descend into for the given key: the first
// child whose separator is >= key, or the last child when none is.
func (n *Inner) ChildFor(key []byte) Node {
	for i, sep := range n.Keys {
		if bytes.Compare(sep, key) >= 0 {
			return n.Children[i]
		}
	}
	return n.Children[len(n.Keys)]
}

// insertSeparator places key in sorted position with right as the child
// following it.
func (n *Inner) insertSeparator(key []byte, right Node) {
	pos := sort.Search(len(n.Keys), func(i int) bool {
		return bytes.Compare(n.Keys[i], key) >= 0
	})
	n.Keys = append(n.Keys, nil)
	copy(n.Keys[pos+1:], n.Keys[pos:])
	n.Keys[pos] = key

	n.Children = append(n.Children, nil)
	copy(n.Children[pos+2:], n.Children[pos+1:])
	n.Children[pos+1] = right
	right.SetParent(n)
}

// Leaf is the volatile descriptor of one persistent leaf. Hashes and Keys
// mirror the slot array of the backing leaf for cache-friendly search.
type Leaf struct {
	parent *Inner
	Hashes [LeafKeys]uint8
	Keys   [LeafKeys][]byte
	Leaf   pmem.PPtr
}

func (l *Leaf) Parent() *Inner     { return l.parent }
func (l *Leaf) SetParent(p *Inner) { l.parent = p }

// FindSlot scans the mirror in reverse index order for the slot holding
// key (prefiltered by hash). Returns -1 when absent.
func (l *Leaf) FindSlot(hash uint8, key []byte) int {
	for i := LeafKeys - 1; i >= 0; i-- {
		if l.Hashes[i] == hash && bytes.Equal(l.Keys[i], key) {
			return i
		}
	}
	return -1
}

// PickSlot chooses the write target for key: an existing slot holding the
// key wins over the last empty slot seen in a forward scan. Returns -1
// when the leaf is full and the key is absent.
func (l *Leaf) PickSlot(hash uint8, key []byte) int {
	empty := -1
	for i := 0; i < LeafKeys; i++ {
		if l.Hashes[i] == 0 {
			empty = i
			continue
		}
		if l.Hashes[i] == hash && bytes.Equal(l.Keys[i], key) {
			return i
		}
	}
	return empty
}

// EmptySlotReverse returns the first empty slot found scanning backwards,
// or -1 when the leaf is full.
func (l *Leaf) EmptySlotReverse() int {
	for i := LeafKeys - 1; i >= 0; i-- {
		if l.Hashes[i] == 0 {
			return i
		}
	}
	return -1
}

// Empty reports whether no slot is occupied.
func (l *Leaf) Empty() bool {
	for i := 0; i < LeafKeys; i++ {
		if l.Hashes[i] != 0 {
			return false
		}
	}
	return true
}

// MaxKey returns the lexicographically largest occupied key, or nil for an
// empty leaf.
func (l *Leaf) MaxKey() []byte {
	var max []byte
	found := false
	for i := 0; i < LeafKeys; i++ {
		if l.Hashes[i] == 0 {
			continue
		}
		if !found || bytes.Compare(l.Keys[i], max) > 0 {
			max = l.Keys[i]
			found = true
		}
	}
	return max
}

// SortedSlots returns the occupied slot indices ordered by key.
func (l *Leaf) SortedSlots() []int {
	idx := make([]int, 0, LeafKeys)
	for i := 0; i < LeafKeys; i++ {
		if l.Hashes[i] != 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return bytes.Compare(l.Keys[idx[a]], l.Keys[idx[b]]) < 0
	})
	return idx
}

// --------------------------------------------------------------------------
// Traversal and Split Propagation
// --------------------------------------------------------------------------

// Descend walks from top to the leaf descriptor responsible for key.
func Descend(top Node, key []byte) *Leaf {
	for {
		switch n := top.(type) {
		case *Leaf:
			return n
		case *Inner:
			top = n.ChildFor(key)
		}
	}
}

// Ascend walks the tree in order, invoking fn once per occupied slot in
// ascending key order. fn returns false to stop; Ascend reports whether
// the walk ran to completion. Leaves are physically unordered, so slots
// are visited through each descriptor's sorted index.
func Ascend(top Node, fn func(leaf *Leaf, slot int) bool) bool {
	if top == nil {
		return true
	}
	switch n := top.(type) {
	case *Leaf:
		for _, i := range n.SortedSlots() {
			if !fn(n, i) {
				return false
			}
		}
	case *Inner:
		for _, child := range n.Children {
			if !Ascend(child, fn) {
				return false
			}
		}
	}
	return true
}

// Promote links right next to left under splitKey and returns the tree
// top, which changes when a new root is created. Inner nodes that overflow
// are split with the middle key promoted upwards. Promote only touches
// volatile state; it is called after the persistent part of a split has
// committed, and recovery re-runs it to rebuild the index.
func Promote(top Node, left, right Node, splitKey []byte) Node {
	parent := left.Parent()
	if parent == nil {
		root := NewInner()
		root.Keys = append(root.Keys, splitKey)
		root.Children = append(root.Children, left, right)
		left.SetParent(root)
		right.SetParent(root)
		return root
	}

	parent.insertSeparator(splitKey, right)
	if len(parent.Keys) <= InnerKeys {
		return top
	}

	// inner overflow: keep InnerMidpoint keys on each side, promote the
	// middle key
	next := NewInner()
	promoted := parent.Keys[InnerMidpoint]

	next.Keys = append(next.Keys, parent.Keys[InnerUpper:]...)
	next.Children = append(next.Children, parent.Children[InnerUpper:]...)
	for _, child := range next.Children {
		child.SetParent(next)
	}

	parent.Keys = parent.Keys[:InnerMidpoint]
	parent.Children = parent.Children[:InnerUpper]

	return Promote(top, parent, next, promoted)
}
