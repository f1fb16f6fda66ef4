package tree

import (
	"errors"
	"strconv"
	"strings"

	"github.com/benz9527/xtree/lib/infra"
)

var (
	ErrKeyNotFound  = errors.New("[tree] key not found")
	ErrDuplicateKey = errors.New("[tree] duplicate key")
	ErrUnknownKind  = errors.New("[tree] unknown tree kind")
)

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	switch c {
	case Black:
		return "Black"
	case Red:
		return "Red"
	default:
	}
	return "RBColor(" + strconv.Itoa(int(c)) + ")"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "RBDirection(" + strconv.Itoa(int(d)) + ")"
}

// Kind is the balancing discipline of a tree.
type Kind uint8

const (
	BST Kind = iota
	AVL
	RedBlack
)

func (k Kind) String() string {
	switch k {
	case BST:
		return "bst"
	case AVL:
		return "avl"
	case RedBlack:
		return "rbtree"
	default:
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bst", "unbalanced":
		return BST, nil
	case "avl":
		return AVL, nil
	case "rb", "rbtree", "redblack", "red-black":
		return RedBlack, nil
	default:
	}
	return 0, ErrUnknownKind
}

// InsertStatus tells how an insert ended.
// BST and AVL ignore a duplicate key silently (AlreadyPresent),
// the red-black tree rejects it (DuplicateRejected + ErrDuplicateKey).
type InsertStatus uint8

const (
	Inserted InsertStatus = iota
	AlreadyPresent
	DuplicateRejected
)

func (s InsertStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already-present"
	case DuplicateRejected:
		return "duplicate-rejected"
	default:
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

type TraversalOrder uint8

const (
	PreOrder TraversalOrder = iota
	InOrder
	PostOrder
)

type Node[K infra.OrderedKey] interface {
	Key() K
	Left() Node[K]
	Right() Node[K]
}

type AVLNode[K infra.OrderedKey] interface {
	Node[K]
	Height() int
}

type RBNode[K infra.OrderedKey] interface {
	Node[K]
	Color() RBColor
	Parent() RBNode[K]
}

// Trace is the keys visited by a delete.
// Path is the descent, including the walk down to the in-order successor.
// Fixup is the parents visited by the red-black delete fix-up, if any.
type Trace[K infra.OrderedKey] struct {
	Path  []K
	Fixup []K
}

// Properties of the tree at the moment they were computed.
type Properties struct {
	Height   int   `json:"height"`
	Nodes    int64 `json:"nodes"`
	Leaves   int64 `json:"leaves"`
	Internal int64 `json:"internal"`
}

// Snapshot is a detached copy of the tree structure, it is not
// affected by later mutations.
// Height is the subtree height (leaf is 1). Color is only
// meaningful for the red-black tree.
type Snapshot[K infra.OrderedKey] struct {
	Key    K
	Height int
	Color  RBColor
	Left   *Snapshot[K]
	Right  *Snapshot[K]
}

// Tree is not safe for concurrent use. Callers serialize access
// to one tree instance.
type Tree[K infra.OrderedKey] interface {
	Kind() Kind
	Len() int64
	Root() Node[K]
	Insert(key K) (InsertStatus, error)
	Delete(key K) (Trace[K], error)
	Search(key K) (Node[K], []K, error)
	Contains(key K) bool
	// Min and Max are the first and the last in-order keys.
	Min() (K, bool)
	Max() (K, bool)
	PreOrder() []K
	InOrder() []K
	PostOrder() []K
	Walk(order TraversalOrder, action func(idx int64, node Node[K]) bool)
	Snapshot() *Snapshot[K]
	Properties() Properties
	Release()
}

type treeOptions struct {
	isDesc bool
}

type Option func(*treeOptions)

// WithDesc orders the keys descending, in-order traversal yields
// the greatest key first.
func WithDesc() Option {
	return func(opts *treeOptions) {
		opts.isDesc = true
	}
}

func comparatorOf[K infra.OrderedKey](opts ...Option) infra.OrderedKeyComparator[K] {
	o := &treeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.isDesc {
		return infra.DescComparator[K]()
	}
	return infra.AscComparator[K]()
}

func NewTree[K infra.OrderedKey](kind Kind, opts ...Option) (Tree[K], error) {
	switch kind {
	case BST:
		return NewBSTree[K](opts...), nil
	case AVL:
		return NewAVLTree[K](opts...), nil
	case RedBlack:
		return NewRBTree[K](opts...), nil
	default:
	}
	return nil, ErrUnknownKind
}
