package internal

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// leafWith builds a descriptor holding the given keys in slot order.
func leafWith(keys ...string) *Leaf {
	l := &Leaf{}
	for i, k := range keys {
		l.Hashes[i] = PearsonHash([]byte(k))
		l.Keys[i] = []byte(k)
	}
	return l
}

func TestPickSlotPrefersKeyMatch(t *testing.T) {
	l := leafWith("aaa", "bbb", "ccc")

	// an existing key wins over any empty slot
	slot := l.PickSlot(PearsonHash([]byte("bbb")), []byte("bbb"))
	require.Equal(t, 1, slot)

	// an absent key lands in the last-seen empty slot
	slot = l.PickSlot(PearsonHash([]byte("zzz")), []byte("zzz"))
	require.Equal(t, LeafKeys-1, slot)
}

func TestPickSlotFullLeaf(t *testing.T) {
	l := &Leaf{}
	for i := 0; i < LeafKeys; i++ {
		k := fmt.Sprintf("key-%03d", i)
		l.Hashes[i] = PearsonHash([]byte(k))
		l.Keys[i] = []byte(k)
	}

	require.GreaterOrEqual(t, l.PickSlot(PearsonHash([]byte("key-000")), []byte("key-000")), 0)
	require.Equal(t, -1, l.PickSlot(PearsonHash([]byte("missing")), []byte("missing")))
}

func TestFindSlotHashFilter(t *testing.T) {
	l := leafWith("one", "two", "three")

	require.Equal(t, 2, l.FindSlot(PearsonHash([]byte("three")), []byte("three")))
	require.Equal(t, -1, l.FindSlot(PearsonHash([]byte("four")), []byte("four")))

	// a hash collision without key equality must not match
	require.Equal(t, -1, l.FindSlot(PearsonHash([]byte("one")), []byte("not-one")))
}

func TestMaxKeyAndEmpty(t *testing.T) {
	require.True(t, (&Leaf{}).Empty())
	require.Nil(t, (&Leaf{}).MaxKey())

	l := leafWith("mmm", "zzz", "aaa")
	require.False(t, l.Empty())
	require.Equal(t, []byte("zzz"), l.MaxKey())
}

func TestSortedSlots(t *testing.T) {
	l := leafWith("ccc", "aaa", "bbb")
	idx := l.SortedSlots()
	require.Equal(t, []int{1, 2, 0}, idx)
}

func TestChildFor(t *testing.T) {
	left := leafWith("aaa")
	mid := leafWith("mmm")
	right := leafWith("zzz")

	n := NewInner()
	n.Keys = append(n.Keys, []byte("aaa"), []byte("mmm"))
	n.Children = append(n.Children, Node(left), Node(mid), Node(right))

	// first separator >= key wins; keys above every separator take the
	// last child
	require.Same(t, Node(left), n.ChildFor([]byte("a")))
	require.Same(t, Node(left), n.ChildFor([]byte("aaa")))
	require.Same(t, Node(mid), n.ChildFor([]byte("aab")))
	require.Same(t, Node(mid), n.ChildFor([]byte("mmm")))
	require.Same(t, Node(right), n.ChildFor([]byte("x")))
}

// checkTree validates the inner-node invariants over a whole tree.
func checkTree(t *testing.T, top Node) {
	t.Helper()
	var walk func(n Node, lower, upper []byte)
	walk = func(n Node, lower, upper []byte) {
		switch node := n.(type) {
		case *Leaf:
			for i := 0; i < LeafKeys; i++ {
				if node.Hashes[i] == 0 {
					continue
				}
				if lower != nil {
					require.Greater(t, bytes.Compare(node.Keys[i], lower), 0,
						"key %q must be > %q", node.Keys[i], lower)
				}
				if upper != nil {
					require.LessOrEqual(t, bytes.Compare(node.Keys[i], upper), 0,
						"key %q must be <= %q", node.Keys[i], upper)
				}
			}
		case *Inner:
			require.NotEmpty(t, node.Keys)
			require.LessOrEqual(t, len(node.Keys), InnerKeys)
			require.Equal(t, len(node.Keys)+1, len(node.Children))
			for i := 1; i < len(node.Keys); i++ {
				require.Negative(t, bytes.Compare(node.Keys[i-1], node.Keys[i]),
					"separators must be strictly ascending")
			}
			for i, child := range node.Children {
				require.Same(t, node, child.Parent(), "child parent link broken")
				childLower, childUpper := lower, upper
				if i > 0 {
					childLower = node.Keys[i-1]
				}
				if i < len(node.Keys) {
					childUpper = node.Keys[i]
				}
				walk(child, childLower, childUpper)
			}
		}
	}
	walk(top, nil, nil)
}

// TestPromoteBuildsBalancedTree drives the propagation routine the way
// recovery does: a sorted run of leaves linked pairwise under their
// predecessor's maximum key.
func TestPromoteBuildsBalancedTree(t *testing.T) {
	const numLeaves = 40

	leaves := make([]*Leaf, numLeaves)
	for i := range leaves {
		leaves[i] = leafWith(fmt.Sprintf("key-%04d", i))
	}

	var top Node = leaves[0]
	for i := 1; i < numLeaves; i++ {
		top = Promote(top, leaves[i-1], leaves[i], leaves[i-1].MaxKey())
	}

	checkTree(t, top)

	// every leaf must be reachable by descending with its own key
	for i, leaf := range leaves {
		key := []byte(fmt.Sprintf("key-%04d", i))
		require.Same(t, leaf, Descend(top, key), "leaf %d unreachable", i)
	}
}

func TestPromoteCreatesRoot(t *testing.T) {
	left := leafWith("aaa")
	right := leafWith("zzz")

	top := Promote(left, left, right, []byte("aaa"))
	root, ok := top.(*Inner)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("aaa")}, root.Keys)
	require.Same(t, root, left.Parent())
	require.Same(t, root, right.Parent())
}

func TestAscendGlobalOrder(t *testing.T) {
	// three leaves with deliberately unsorted slot order
	l1 := leafWith("ccc", "aaa", "bbb")
	l2 := leafWith("mmm", "kkk")
	l3 := leafWith("zzz", "xxx", "yyy")

	var top Node = l1
	top = Promote(top, l1, l2, l1.MaxKey())
	top = Promote(top, l2, l3, l2.MaxKey())

	var visited []string
	complete := Ascend(top, func(leaf *Leaf, slot int) bool {
		visited = append(visited, string(leaf.Keys[slot]))
		return true
	})
	require.True(t, complete)
	require.True(t, sort.StringsAreSorted(visited), "visited out of order: %v", visited)
	require.Len(t, visited, 8)
}

func TestAscendEarlyStop(t *testing.T) {
	l := leafWith("aaa", "bbb", "ccc")
	count := 0
	complete := Ascend(l, func(leaf *Leaf, slot int) bool {
		count++
		return count < 2
	})
	require.False(t, complete)
	require.Equal(t, 2, count)
}
