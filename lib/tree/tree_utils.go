package tree

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
)

// Traversals are iterative with an explicit stack.

func walkInOrder[K infra.OrderedKey](root Node[K], action func(idx int64, node Node[K]) bool) {
	stack := make([]Node[K], 0, 32)
	defer func() {
		clear(stack)
	}()

	for aux := root; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		if !action(idx, aux) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
}

func walkPreOrder[K infra.OrderedKey](root Node[K], action func(idx int64, node Node[K]) bool) {
	if root == nil {
		return
	}
	stack := make([]Node[K], 0, 32)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, root)

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		if !action(idx, aux) {
			return
		}
		idx++
		// Right first, so the left subtree pops first.
		if r := aux.Right(); r != nil {
			stack = append(stack, r)
		}
		if l := aux.Left(); l != nil {
			stack = append(stack, l)
		}
	}
}

func walkPostOrder[K infra.OrderedKey](root Node[K], action func(idx int64, node Node[K]) bool) {
	if root == nil {
		return
	}
	stack := make([]Node[K], 0, 32)
	defer func() {
		clear(stack)
	}()

	var last Node[K]
	idx := int64(0)
	for aux := root; aux != nil || len(stack) > 0; {
		if aux != nil {
			stack = append(stack, aux)
			aux = aux.Left()
			continue
		}
		top := stack[len(stack)-1]
		if r := top.Right(); r != nil && r != last {
			aux = r
			continue
		}
		if !action(idx, top) {
			return
		}
		idx++
		last = top
		stack = stack[:len(stack)-1]
	}
}

func walk[K infra.OrderedKey](root Node[K], order TraversalOrder, action func(idx int64, node Node[K]) bool) {
	switch order {
	case PreOrder:
		walkPreOrder[K](root, action)
	case InOrder:
		walkInOrder[K](root, action)
	case PostOrder:
		walkPostOrder[K](root, action)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[tree] unknown traversal order")
	}
}

func collectKeys[K infra.OrderedKey](root Node[K], order TraversalOrder, size int64) []K {
	nodes := make([]Node[K], 0, size)
	walk[K](root, order, func(idx int64, node Node[K]) bool {
		nodes = append(nodes, node)
		return true
	})
	return lo.Map(nodes, func(node Node[K], _ int) K {
		return node.Key()
	})
}

func heightOf[K infra.OrderedKey](node Node[K]) int {
	if node == nil {
		return 0
	}
	if n, ok := node.(AVLNode[K]); ok {
		return n.Height()
	}
	return 1 + max(heightOf[K](node.Left()), heightOf[K](node.Right()))
}

func snapshotOf[K infra.OrderedKey](node Node[K]) *Snapshot[K] {
	if node == nil {
		return nil
	}
	snap := &Snapshot[K]{
		Key:   node.Key(),
		Left:  snapshotOf[K](node.Left()),
		Right: snapshotOf[K](node.Right()),
	}
	if n, ok := node.(AVLNode[K]); ok {
		snap.Height = n.Height()
	} else {
		snap.Height = 1 + max(snap.Left.height(), snap.Right.height())
	}
	if n, ok := node.(RBNode[K]); ok {
		snap.Color = n.Color()
	}
	return snap
}

func (snap *Snapshot[K]) height() int {
	if snap == nil {
		return 0
	}
	return snap.Height
}

func propertiesOf[K infra.OrderedKey](root Node[K]) Properties {
	props := Properties{
		Height: heightOf[K](root),
	}
	walkPreOrder[K](root, func(idx int64, node Node[K]) bool {
		props.Nodes++
		if node.Left() == nil && node.Right() == nil {
			props.Leaves++
		}
		return true
	})
	props.Internal = props.Nodes - props.Leaves
	return props
}

func minimumOf[K infra.OrderedKey](root Node[K]) (K, bool) {
	var key K
	if root == nil {
		return key, false
	}
	aux := root
	for l := aux.Left(); l != nil; l = aux.Left() {
		aux = l
	}
	return aux.Key(), true
}

func maximumOf[K infra.OrderedKey](root Node[K]) (K, bool) {
	var key K
	if root == nil {
		return key, false
	}
	aux := root
	for r := aux.Right(); r != nil; r = aux.Right() {
		aux = r
	}
	return aux.Key(), true
}

// Tree rule validation utilities.
// Violations are implementation defects, they are never returned by
// the tree operations themselves.

// OrderViolationValidate checks the in-order keys are strictly monotonic,
// ascending by default or descending by WithDesc().
func OrderViolationValidate[K infra.OrderedKey](tree Tree[K]) error {
	var (
		prev K
		asc  bool
		err  error
	)
	tree.Walk(InOrder, func(idx int64, node Node[K]) bool {
		key := node.Key()
		switch {
		case idx == 0:
		case idx == 1:
			if key == prev {
				err = fmt.Errorf("%s order violation, duplicate key %v", tree.Kind(), key)
				return false
			}
			asc = prev < key
		case (asc && !(prev < key)) || (!asc && !(key < prev)):
			err = fmt.Errorf("%s order violation at key %v", tree.Kind(), key)
			return false
		}
		prev = key
		return true
	})
	if err != nil {
		return err
	}
	if size := int64(len(tree.InOrder())); size != tree.Len() {
		return fmt.Errorf("%s size violation, len %d but %d nodes", tree.Kind(), tree.Len(), size)
	}
	return nil
}

// HeightViolationValidate checks every AVL node keeps a correct height
// and a balance factor in [-1, 1].
func HeightViolationValidate[K infra.OrderedKey](tree Tree[K]) error {
	var err error
	tree.Walk(PostOrder, func(idx int64, node Node[K]) bool {
		n, ok := node.(AVLNode[K])
		if !ok {
			err = errors.New("avl height violation, node without height")
			return false
		}
		lh, rh := heightOf[K](node.Left()), heightOf[K](node.Right())
		if n.Height() != 1+max(lh, rh) {
			err = fmt.Errorf("avl height violation at key %v, height %d, left %d, right %d",
				node.Key(), n.Height(), lh, rh)
			return false
		}
		if bf := lh - rh; bf > 1 || bf < -1 {
			err = fmt.Errorf("avl balance violation at key %v, balance factor %d", node.Key(), bf)
			return false
		}
		return true
	})
	return err
}

func isRed[K infra.OrderedKey](node Node[K]) bool {
	n, ok := node.(RBNode[K])
	return ok && n.Color() == Red
}

func parentOf[K infra.OrderedKey](node Node[K]) Node[K] {
	n, ok := node.(RBNode[K])
	if !ok {
		return nil
	}
	if p := n.Parent(); p != nil {
		return p
	}
	return nil
}

// RootColorValidate checks the red-black root is black.
func RootColorValidate[K infra.OrderedKey](tree Tree[K]) error {
	if root := tree.Root(); root != nil && isRed[K](root) {
		return errors.New("rbtree root violation")
	}
	return nil
}

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// RedViolationValidate checks no red node has a red child.
func RedViolationValidate[K infra.OrderedKey](tree Tree[K]) error {
	var err error
	walkInOrder[K](tree.Root(), func(idx int64, node Node[K]) bool {
		if isRed[K](node) && (isRed[K](node.Left()) || isRed[K](node.Right())) {
			err = fmt.Errorf("rbtree red violation at key %v", node.Key())
			return false
		}
		return true
	})
	return err
}

func blackDepthTo[K infra.OrderedKey](target, to Node[K]) int {
	depth := 0
	for aux := target; aux != nil && aux != to; aux = parentOf[K](aux) {
		if !isRed[K](aux) {
			depth++
		}
	}
	return depth
}

// BFS traversal to load all nodes owning at least one NIL child.
func bfsLeaves[K infra.OrderedKey](root Node[K]) []Node[K] {
	if root == nil {
		return nil
	}

	leaves := make([]Node[K], 0, 32)
	queue := make([]Node[K], 0, 32)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, root)

	for len(queue) > 0 {
		aux := queue[0]
		l, r := aux.Left(), aux.Right()
		if /* nil leaves, keep one */ l == nil || r == nil {
			leaves = append(leaves, aux)
		}
		if l != nil {
			queue = append(queue, l)
		}
		if r != nil {
			queue = append(queue, r)
		}
		queue = queue[1:]
	}
	return leaves
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
	        /  \
	     <8>    [15]
	     / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
	      /  \             /    \
	     /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey](tree Tree[K]) error {
	root := tree.Root()
	leaves := bfsLeaves[K](root)
	if leaves == nil {
		return nil
	}

	blackDepth := blackDepthTo[K](leaves[0], root)
	for i := 1; i < len(leaves); i++ {
		if depth := blackDepthTo[K](leaves[i], root); depth != blackDepth {
			return fmt.Errorf("rbtree black violation at key %v, black depth %d, expected %d",
				leaves[i].Key(), depth, blackDepth)
		}
	}
	return nil
}

// Validate runs every validator that applies to the tree kind.
func Validate[K infra.OrderedKey](tree Tree[K]) error {
	err := OrderViolationValidate[K](tree)
	switch tree.Kind() {
	case AVL:
		err = multierr.Append(err, HeightViolationValidate[K](tree))
	case RedBlack:
		err = multierr.Combine(
			err,
			RootColorValidate[K](tree),
			RedViolationValidate[K](tree),
			BlackViolationValidate[K](tree),
		)
	default:
	}
	return err
}
