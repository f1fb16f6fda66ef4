package tree

import (
	"sync/atomic"

	"github.com/benz9527/xtree/lib/infra"
)

type rbNode[K infra.OrderedKey] struct {
	parent *rbNode[K]
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
	isNil  bool // the sentinel leaf
}

func (node *rbNode[K]) Color() RBColor {
	return node.color
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Left() Node[K] {
	if node.isNilLeaf() || node.left.isNilLeaf() {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Right() Node[K] {
	if node.isNilLeaf() || node.right.isNilLeaf() {
		return nil
	}
	return node.right
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node.isNilLeaf() || node.parent.isNilLeaf() {
		return nil
	}
	return node.parent
}

func (node *rbNode[K]) isNilLeaf() bool {
	return node == nil || node.isNil
}

// The sentinel is black, so all NIL leaves are black.
func (node *rbNode[K]) isRed() bool {
	return !node.isNilLeaf() && node.color == Red
}

func (node *rbNode[K]) isBlack() bool {
	return node.isNilLeaf() || node.color == Black
}

func (node *rbNode[K]) isRoot() bool {
	return !node.isNilLeaf() && node.parent.isNilLeaf()
}

func (node *rbNode[K]) Direction() RBDirection {
	if node.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

// rbTree keeps one black sentinel per tree for every empty child and
// parent slot. The sentinel is never written after construction, the
// delete fix-up carries the parent of the current node itself instead
// of parking it in the sentinel.
type rbTree[K infra.OrderedKey] struct {
	sentinel *rbNode[K]
	root     *rbNode[K]
	count    int64
	cmp      infra.OrderedKeyComparator[K]
}

func (tree *rbTree[K]) Kind() Kind {
	return RedBlack
}

func (tree *rbTree[K]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K]) Root() Node[K] {
	if tree.root.isNilLeaf() {
		return nil
	}
	return tree.root
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) {
	if x.isNilLeaf() || x.right.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right = y.left
	if !y.left.isNilLeaf() {
		y.left.parent = x
	}
	y.left = x
	x.parent = y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
}

/*
		 |                         |
		 X                         S
		/ \     rightRotate(X)    / \
	   S   R    ============>   Sd   X
	  / \                           / \
	Sd   Sc                       Sc   R
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) {
	if x.isNilLeaf() || x.left.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left = y.right
	if !y.right.isNilLeaf() {
		y.right.parent = x
	}
	y.right = x
	x.parent = y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
}

func (tree *rbTree[K]) search(key K, path *[]K) *rbNode[K] {
	for aux := tree.root; !aux.isNilLeaf(); {
		if path != nil {
			*path = append(*path, aux.key)
		}
		res := tree.cmp(key, aux.key)
		if res == 0 {
			return aux
		} else if res < 0 {
			aux = aux.left
		} else {
			aux = aux.right
		}
	}
	return nil
}

func (tree *rbTree[K]) Search(key K) (Node[K], []K, error) {
	path := make([]K, 0, 16)
	if x := tree.search(key, &path); x != nil {
		return x, path, nil
	}
	return nil, path, ErrKeyNotFound
}

func (tree *rbTree[K]) Contains(key K) bool {
	return tree.search(key, nil) != nil
}

// Insert rejects a duplicate key with ErrDuplicateKey and leaves the
// tree unchanged.
func (tree *rbTree[K]) Insert(key K) (InsertStatus, error) {
	if tree.search(key, nil) != nil {
		return DuplicateRejected, ErrDuplicateKey
	}

	y, x := tree.sentinel, tree.root
	for !x.isNilLeaf() {
		y = x
		if tree.cmp(key, x.key) < 0 {
			x = x.left
		} else {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
		left:   tree.sentinel,
		right:  tree.sentinel,
	}
	if /* empty tree */ y.isNilLeaf() {
		tree.root = z
	} else if tree.cmp(key, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}

	atomic.AddInt64(&tree.count, 1)
	tree.insertRebalance(z)
	return Inserted, nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: X's parent P is black (or X is root), nothing to fix.

im2: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix from grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to P's direction.
Then P takes X's place and enter im4.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im4: Current node is the same direction as parent.
Repaint P into black, G into red, then rotate G to the opposite direction.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /                         \
	<X>                         [U]

The root is always repainted black at the end.
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) {
	for /* im1 */ x.parent.isRed() {
		p := x.parent
		gp := p.parent
		if p == gp.left {
			uncle := gp.right
			if /* im2 */ uncle.isRed() {
				p.color = Black
				uncle.color = Black
				gp.color = Red
				x = gp
				continue
			}
			if /* im3 */ x == p.right {
				x = p
				tree.leftRotate(x)
				p = x.parent
			}
			/* im4 */
			p.color = Black
			gp.color = Red
			tree.rightRotate(gp)
		} else {
			uncle := gp.left
			if /* im2 */ uncle.isRed() {
				p.color = Black
				uncle.color = Black
				gp.color = Red
				x = gp
				continue
			}
			if /* im3 */ x == p.left {
				x = p
				tree.rightRotate(x)
				p = x.parent
			}
			/* im4 */
			p.color = Black
			gp.color = Red
			tree.leftRotate(gp)
		}
	}
	tree.root.color = Black
}

/*
r1: Current node Z has left and right node.
Copy the in-order successor S (the minimum of the right subtree) key
into Z, then remove S instead. S has no left child.

	  |                    |
	  Z                    S
	 / \                  / \
	L  ..   copy(S, Z)   L  ..
	    |   =========>       |
	    P                    P
	   / \                  / \
	  S  ..               [S] ..

r2: The removed node Y has at most one child X (X may be NIL).
X takes Y's place. If Y was red, nothing to fix.

r3: Y was black, a black-height deficit is left at X's position.
(black-violation)
*/
func (tree *rbTree[K]) Delete(key K) (Trace[K], error) {
	trace := Trace[K]{
		Path: make([]K, 0, 16),
	}
	z := tree.search(key, &trace.Path)
	if z == nil {
		return trace, ErrKeyNotFound
	}

	y := z
	if /* r1 */ !z.left.isNilLeaf() && !z.right.isNilLeaf() {
		y = z.right
		trace.Path = append(trace.Path, y.key)
		for !y.left.isNilLeaf() {
			y = y.left
			trace.Path = append(trace.Path, y.key)
		}
		z.key = y.key
	}

	/* r2 */
	x := y.left
	if x.isNilLeaf() {
		x = y.right
	}
	xp := y.parent
	if !x.isNilLeaf() {
		x.parent = xp
	}
	switch dir := y.Direction(); dir {
	case Root:
		tree.root = x
	case Left:
		xp.left = x
	case Right:
		xp.right = x
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to remove")
	}

	if /* r3 */ y.isBlack() {
		tree.removeRebalance(x, xp, &trace)
	}

	// Unlink node
	y.parent, y.left, y.right = nil, nil, nil
	atomic.AddInt64(&tree.count, -1)
	return trace, nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X carries the deficit, P is X's parent, S is X's sibling.
Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: S is red, so P, Sc and Sd must be black.
Repaint S into black, P into red, rotate P to X's direction.
X's new sibling is the old Sc, which is black.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: S, Sc and Sd are black.
Repaint S into red, P carries the deficit now. If P is red, the loop
ends and P is repainted black.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: S is black, Sc is red and Sd is black.
Repaint Sc into black, S into red, rotate S away from X.
Enter rm4 to fix.

	                        {P}
	  {P}                   / \
	  / \    r-rotate(S)  [X] [Sc]
	[X] [S]  ==========>        \
	    / \                     <S>
	  <Sc> [Sd]                   \
	                              [Sd]

rm4: S is black and Sd is red.
S takes P's color, repaint P and Sd into black, rotate P to X's
direction. The deficit is resolved.

	  {P}                   {S}
	  / \    l-rotate(P)    / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 {Sc} <Sd>          [X] {Sc}
*/
func (tree *rbTree[K]) removeRebalance(x, xp *rbNode[K], trace *Trace[K]) {
	for x != tree.root && x.isBlack() {
		trace.Fixup = append(trace.Fixup, xp.key)
		if x == xp.left {
			sibling := xp.right
			if /* rm1 */ sibling.isRed() {
				sibling.color = Black
				xp.color = Red
				tree.leftRotate(xp)
				sibling = xp.right
			}
			if /* rm2 */ sibling.left.isBlack() && sibling.right.isBlack() {
				sibling.color = Red
				x, xp = xp, xp.parent
				continue
			}
			if /* rm3 */ sibling.right.isBlack() {
				sibling.left.color = Black
				sibling.color = Red
				tree.rightRotate(sibling)
				sibling = xp.right
			}
			/* rm4 */
			sibling.color = xp.color
			xp.color = Black
			sibling.right.color = Black
			tree.leftRotate(xp)
			x = tree.root
		} else {
			sibling := xp.left
			if /* rm1 */ sibling.isRed() {
				sibling.color = Black
				xp.color = Red
				tree.rightRotate(xp)
				sibling = xp.left
			}
			if /* rm2 */ sibling.left.isBlack() && sibling.right.isBlack() {
				sibling.color = Red
				x, xp = xp, xp.parent
				continue
			}
			if /* rm3 */ sibling.left.isBlack() {
				sibling.right.color = Black
				sibling.color = Red
				tree.leftRotate(sibling)
				sibling = xp.left
			}
			/* rm4 */
			sibling.color = xp.color
			xp.color = Black
			sibling.left.color = Black
			tree.rightRotate(xp)
			x = tree.root
		}
	}
	if !x.isNilLeaf() {
		x.color = Black
	}
}

func (tree *rbTree[K]) Min() (K, bool) {
	return minimumOf[K](tree.Root())
}

func (tree *rbTree[K]) Max() (K, bool) {
	return maximumOf[K](tree.Root())
}

func (tree *rbTree[K]) PreOrder() []K {
	return collectKeys[K](tree.Root(), PreOrder, tree.Len())
}

func (tree *rbTree[K]) InOrder() []K {
	return collectKeys[K](tree.Root(), InOrder, tree.Len())
}

func (tree *rbTree[K]) PostOrder() []K {
	return collectKeys[K](tree.Root(), PostOrder, tree.Len())
}

func (tree *rbTree[K]) Walk(order TraversalOrder, action func(idx int64, node Node[K]) bool) {
	walk[K](tree.Root(), order, action)
}

func (tree *rbTree[K]) Snapshot() *Snapshot[K] {
	return snapshotOf[K](tree.Root())
}

func (tree *rbTree[K]) Properties() Properties {
	return propertiesOf[K](tree.Root())
}

// Release drops every node, the parent links are cut so no node keeps
// another one alive.
func (tree *rbTree[K]) Release() {
	aux := tree.root
	tree.root = tree.sentinel
	atomic.StoreInt64(&tree.count, 0)
	if aux.isNilLeaf() {
		return
	}

	stack := make([]*rbNode[K], 0, 32)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		if !aux.left.isNilLeaf() {
			stack = append(stack, aux.left)
		}
		if !aux.right.isNilLeaf() {
			stack = append(stack, aux.right)
		}
		aux.parent, aux.left, aux.right = nil, nil, nil
	}
}

func NewRBTree[K infra.OrderedKey](opts ...Option) Tree[K] {
	sentinel := &rbNode[K]{
		color: Black,
		isNil: true,
	}
	return &rbTree[K]{
		sentinel: sentinel,
		root:     sentinel,
		cmp:      comparatorOf[K](opts...),
	}
}
