package tree

import (
	"sync/atomic"

	"github.com/benz9527/xtree/lib/infra"
)

type avlNode[K infra.OrderedKey] struct {
	left   *avlNode[K]
	right  *avlNode[K]
	key    K
	height int
}

func (node *avlNode[K]) Key() K {
	return node.key
}

// Height of a leaf is 1 and height of empty is 0.
func (node *avlNode[K]) Height() int {
	if node == nil {
		return 0
	}
	return node.height
}

func (node *avlNode[K]) Left() Node[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *avlNode[K]) Right() Node[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *avlNode[K]) balance() int {
	if node == nil {
		return 0
	}
	return node.left.Height() - node.right.Height()
}

func (node *avlNode[K]) refresh() {
	node.height = 1 + max(node.left.Height(), node.right.Height())
}

type avlTree[K infra.OrderedKey] struct {
	root  *avlNode[K]
	count int64
	cmp   infra.OrderedKeyComparator[K]
}

func (tree *avlTree[K]) Kind() Kind {
	return AVL
}

func (tree *avlTree[K]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *avlTree[K]) Root() Node[K] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

/*
		 |                         |
		 Y                         X
		/ \    rightRotate(Y)     / \
	   X   R   ============>    L   Y
	  / \                          / \
	 L   T2                      T2   R
*/
func (tree *avlTree[K]) rightRotate(y *avlNode[K]) *avlNode[K] {
	if y == nil || y.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avl] right rotate node y is nil or y.left is nil")
	}
	x := y.left
	y.left, x.right = x.right, y
	y.refresh()
	x.refresh()
	return x
}

/*
		 |                         |
		 X                         Y
		/ \    leftRotate(X)      / \
	   L   Y   ============>     X   R
		  / \                   / \
		T2   R                 L   T2
*/
func (tree *avlTree[K]) leftRotate(x *avlNode[K]) *avlNode[K] {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[avl] left rotate node x is nil or x.right is nil")
	}
	y := x.right
	x.right, y.left = y.left, x
	x.refresh()
	y.refresh()
	return y
}

/*
The new key K went down into the taller side of an unbalanced node N,
its direction picks the rotation.

i1 (LL): bf > 1 and K < N.left.key, right rotate N.
i2 (RR): bf < -1 and K > N.right.key, left rotate N.
i3 (LR): bf > 1 and K > N.left.key, left rotate N.left, then right rotate N.
i4 (RL): bf < -1 and K < N.right.key, right rotate N.right, then left rotate N.
*/
func (tree *avlTree[K]) insert(node *avlNode[K], key K, status *InsertStatus) *avlNode[K] {
	if node == nil {
		*status = Inserted
		return &avlNode[K]{
			key:    key,
			height: 1,
		}
	}

	res := tree.cmp(key, node.key)
	if /* equal */ res == 0 {
		*status = AlreadyPresent
		return node
	} else /* less */ if res < 0 {
		node.left = tree.insert(node.left, key, status)
	} else /* greater */ {
		node.right = tree.insert(node.right, key, status)
	}
	if *status != Inserted {
		return node
	}

	node.refresh()
	bf := node.balance()
	if /* i1 */ bf > 1 && tree.cmp(key, node.left.key) < 0 {
		return tree.rightRotate(node)
	}
	if /* i2 */ bf < -1 && tree.cmp(key, node.right.key) > 0 {
		return tree.leftRotate(node)
	}
	if /* i3 */ bf > 1 && tree.cmp(key, node.left.key) > 0 {
		node.left = tree.leftRotate(node.left)
		return tree.rightRotate(node)
	}
	if /* i4 */ bf < -1 && tree.cmp(key, node.right.key) < 0 {
		node.right = tree.rightRotate(node.right)
		return tree.leftRotate(node)
	}
	return node
}

// Insert a duplicate key is a no-op.
func (tree *avlTree[K]) Insert(key K) (InsertStatus, error) {
	status := AlreadyPresent
	tree.root = tree.insert(tree.root, key, &status)
	if status == Inserted {
		atomic.AddInt64(&tree.count, 1)
	}
	return status, nil
}

func (tree *avlTree[K]) Search(key K) (Node[K], []K, error) {
	path := make([]K, 0, 16)
	for aux := tree.root; aux != nil; {
		path = append(path, aux.key)
		res := tree.cmp(key, aux.key)
		if res == 0 {
			return aux, path, nil
		} else if res < 0 {
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return nil, path, ErrKeyNotFound
}

func (tree *avlTree[K]) Contains(key K) bool {
	_, _, err := tree.Search(key)
	return err == nil
}

/*
The key is gone, so the balance factor of the taller child picks the
rotation at an unbalanced node N.

r1: bf > 1 and balance(N.left) >= 0, right rotate N.
r2: bf > 1 and balance(N.left) < 0, left rotate N.left, then right rotate N.
r3: bf < -1 and balance(N.right) <= 0, left rotate N.
r4: bf < -1 and balance(N.right) > 0, right rotate N.right, then left rotate N.

Unlike insert, a rotation may shorten the subtree, so every ancestor up
to the root is rebalanced.
*/
func (tree *avlTree[K]) remove(node *avlNode[K], key K, trace *Trace[K], found *bool) *avlNode[K] {
	if node == nil {
		return nil
	}
	trace.Path = append(trace.Path, node.key)

	res := tree.cmp(key, node.key)
	if res < 0 {
		node.left = tree.remove(node.left, key, trace, found)
	} else if res > 0 {
		node.right = tree.remove(node.right, key, trace, found)
	} else {
		*found = true
		if node.left == nil || node.right == nil {
			child := node.left
			if child == nil {
				child = node.right
			}
			node.left, node.right = nil, nil
			return child
		}

		// Replace by the in-order successor, then remove the successor.
		succ := node.right
		for succ.left != nil {
			succ = succ.left
		}
		node.key = succ.key
		node.right = tree.remove(node.right, succ.key, trace, found)
	}
	if !*found {
		return node
	}

	node.refresh()
	switch bf := node.balance(); {
	case bf > 1:
		if /* r2 */ node.left.balance() < 0 {
			node.left = tree.leftRotate(node.left)
		}
		/* r1 */
		return tree.rightRotate(node)
	case bf < -1:
		if /* r4 */ node.right.balance() > 0 {
			node.right = tree.rightRotate(node.right)
		}
		/* r3 */
		return tree.leftRotate(node)
	default:
	}
	return node
}

func (tree *avlTree[K]) Delete(key K) (Trace[K], error) {
	trace := Trace[K]{
		Path: make([]K, 0, 16),
	}
	found := false
	tree.root = tree.remove(tree.root, key, &trace, &found)
	if !found {
		return trace, ErrKeyNotFound
	}
	atomic.AddInt64(&tree.count, -1)
	return trace, nil
}

func (tree *avlTree[K]) Min() (K, bool) {
	return minimumOf[K](tree.Root())
}

func (tree *avlTree[K]) Max() (K, bool) {
	return maximumOf[K](tree.Root())
}

func (tree *avlTree[K]) PreOrder() []K {
	return collectKeys[K](tree.Root(), PreOrder, tree.Len())
}

func (tree *avlTree[K]) InOrder() []K {
	return collectKeys[K](tree.Root(), InOrder, tree.Len())
}

func (tree *avlTree[K]) PostOrder() []K {
	return collectKeys[K](tree.Root(), PostOrder, tree.Len())
}

func (tree *avlTree[K]) Walk(order TraversalOrder, action func(idx int64, node Node[K]) bool) {
	walk[K](tree.Root(), order, action)
}

func (tree *avlTree[K]) Snapshot() *Snapshot[K] {
	return snapshotOf[K](tree.Root())
}

func (tree *avlTree[K]) Properties() Properties {
	return propertiesOf[K](tree.Root())
}

func (tree *avlTree[K]) Release() {
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
}

func NewAVLTree[K infra.OrderedKey](opts ...Option) Tree[K] {
	return &avlTree[K]{
		cmp: comparatorOf[K](opts...),
	}
}
