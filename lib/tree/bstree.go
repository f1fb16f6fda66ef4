package tree

import (
	"sync/atomic"

	"github.com/benz9527/xtree/lib/infra"
)

type bstNode[K infra.OrderedKey] struct {
	left  *bstNode[K]
	right *bstNode[K]
	key   K
}

func (node *bstNode[K]) Key() K {
	return node.key
}

func (node *bstNode[K]) Left() Node[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *bstNode[K]) Right() Node[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

// bsTree is the unbalanced binary search tree. Its height follows the
// insert order, every descent loops over the child slots.
type bsTree[K infra.OrderedKey] struct {
	root  *bstNode[K]
	count int64
	cmp   infra.OrderedKeyComparator[K]
}

func (tree *bsTree[K]) Kind() Kind {
	return BST
}

func (tree *bsTree[K]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *bsTree[K]) Root() Node[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

// Insert a duplicate key is a no-op.
func (tree *bsTree[K]) Insert(key K) (InsertStatus, error) {
	slot := &tree.root
	for *slot != nil {
		res := tree.cmp(key, (*slot).key)
		if /* equal */ res == 0 {
			return AlreadyPresent, nil
		} else /* less */ if res < 0 {
			slot = &(*slot).left
		} else /* greater */ {
			slot = &(*slot).right
		}
	}
	*slot = &bstNode[K]{
		key: key,
	}
	atomic.AddInt64(&tree.count, 1)
	return Inserted, nil
}

// search returns the slot holding the key, or the empty slot where the
// key would be attached.
func (tree *bsTree[K]) search(key K, path *[]K) **bstNode[K] {
	slot := &tree.root
	for *slot != nil {
		*path = append(*path, (*slot).key)
		res := tree.cmp(key, (*slot).key)
		if res == 0 {
			break
		} else if res < 0 {
			slot = &(*slot).left
		} else {
			slot = &(*slot).right
		}
	}
	return slot
}

func (tree *bsTree[K]) Search(key K) (Node[K], []K, error) {
	path := make([]K, 0, 16)
	if slot := tree.search(key, &path); *slot != nil {
		return *slot, path, nil
	}
	return nil, path, ErrKeyNotFound
}

func (tree *bsTree[K]) Contains(key K) bool {
	_, _, err := tree.Search(key)
	return err == nil
}

/*
d1: Current node Z has no child, unlink directly.

d2: Current node Z has only one child, the child takes Z's slot.

d3: Current node Z has left and right child.
Copy the in-order successor S (the minimum of the right subtree) key into Z,
then remove S which has no left child (enter d1 or d2).

	  |                    |
	  Z                    S
	 / \                  / \
	L  ..   copy(S, Z)   L  ..
	    |   =========>       |
	    P                    P
	   / \                  / \
	  S  ..               [S] ..
	   \                    \
	    R                    R
*/
func (tree *bsTree[K]) Delete(key K) (Trace[K], error) {
	trace := Trace[K]{
		Path: make([]K, 0, 16),
	}
	slot := tree.search(key, &trace.Path)
	if *slot == nil {
		return trace, ErrKeyNotFound
	}

	if z := *slot; /* d3 */ z.left != nil && z.right != nil {
		slot = &z.right
		trace.Path = append(trace.Path, (*slot).key)
		for (*slot).left != nil {
			slot = &(*slot).left
			trace.Path = append(trace.Path, (*slot).key)
		}
		z.key = (*slot).key
	}

	y := *slot
	if /* d2 */ y.left != nil {
		*slot = y.left
	} else /* d1, d2 */ {
		*slot = y.right
	}
	y.left, y.right = nil, nil
	atomic.AddInt64(&tree.count, -1)
	return trace, nil
}

func (tree *bsTree[K]) Min() (K, bool) {
	return minimumOf[K](tree.Root())
}

func (tree *bsTree[K]) Max() (K, bool) {
	return maximumOf[K](tree.Root())
}

func (tree *bsTree[K]) PreOrder() []K {
	return collectKeys[K](tree.Root(), PreOrder, tree.Len())
}

func (tree *bsTree[K]) InOrder() []K {
	return collectKeys[K](tree.Root(), InOrder, tree.Len())
}

func (tree *bsTree[K]) PostOrder() []K {
	return collectKeys[K](tree.Root(), PostOrder, tree.Len())
}

func (tree *bsTree[K]) Walk(order TraversalOrder, action func(idx int64, node Node[K]) bool) {
	walk[K](tree.Root(), order, action)
}

func (tree *bsTree[K]) Snapshot() *Snapshot[K] {
	return snapshotOf[K](tree.Root())
}

func (tree *bsTree[K]) Properties() Properties {
	return propertiesOf[K](tree.Root())
}

func (tree *bsTree[K]) Release() {
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
}

func NewBSTree[K infra.OrderedKey](opts ...Option) Tree[K] {
	return &bsTree[K]{
		cmp: comparatorOf[K](opts...),
	}
}
