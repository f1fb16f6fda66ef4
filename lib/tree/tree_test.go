package tree

import (
	randv2 "math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKinds = []Kind{BST, AVL, RedBlack}

func TestParseKind(t *testing.T) {
	testcases := []struct {
		name string
		kind Kind
		err  error
	}{
		{"bst", BST, nil},
		{" Unbalanced ", BST, nil},
		{"AVL", AVL, nil},
		{"rb", RedBlack, nil},
		{"red-black", RedBlack, nil},
		{"rbtree", RedBlack, nil},
		{"splay", 0, ErrUnknownKind},
	}
	for _, tc := range testcases {
		kind, err := ParseKind(tc.name)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.kind, kind)
	}
	assert.Equal(t, "bst", BST.String())
	assert.Equal(t, "avl", AVL.String())
	assert.Equal(t, "rbtree", RedBlack.String())
	assert.Equal(t, "Red", Red.String())
	assert.Equal(t, "Black", Black.String())
	assert.Equal(t, "Left", Left.String())
	assert.Equal(t, "duplicate-rejected", DuplicateRejected.String())
}

func TestNewTree(t *testing.T) {
	for _, kind := range allKinds {
		tree, err := NewTree[int](kind)
		require.NoError(t, err)
		require.Equal(t, kind, tree.Kind())
		require.Equal(t, int64(0), tree.Len())
		require.Nil(t, tree.Root())
		require.Nil(t, tree.Snapshot())
		require.Empty(t, tree.InOrder())
		require.Equal(t, Properties{}, tree.Properties())
		require.NoError(t, Validate[int](tree))
	}
	_, err := NewTree[int](Kind(42))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestTreeSetSemantics(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(tt *testing.T) {
			tree, err := NewTree[int64](kind)
			require.NoError(tt, err)

			inserted := make(map[int64]struct{}, 512)
			for i := 0; i < 1000; i++ {
				key := randv2.Int64N(512)
				status, err := tree.Insert(key)
				_, dup := inserted[key]
				switch {
				case !dup:
					require.NoError(tt, err)
					require.Equal(tt, Inserted, status)
				case kind == RedBlack:
					require.ErrorIs(tt, err, ErrDuplicateKey)
					require.Equal(tt, DuplicateRejected, status)
				default:
					require.NoError(tt, err)
					require.Equal(tt, AlreadyPresent, status)
				}
				inserted[key] = struct{}{}
			}

			deleted := make(map[int64]struct{}, 128)
			for i := 0; i < 256; i++ {
				key := randv2.Int64N(512)
				_, err := tree.Delete(key)
				_, in := inserted[key]
				_, gone := deleted[key]
				if in && !gone {
					require.NoError(tt, err)
					deleted[key] = struct{}{}
				} else {
					require.ErrorIs(tt, err, ErrKeyNotFound)
				}
				require.NoError(tt, Validate[int64](tree))
			}

			expected := make([]int64, 0, len(inserted))
			for key := int64(0); key < 512; key++ {
				_, in := inserted[key]
				_, gone := deleted[key]
				require.Equal(tt, in && !gone, tree.Contains(key))
				node, path, err := tree.Search(key)
				if in && !gone {
					require.NoError(tt, err)
					require.Equal(tt, key, node.Key())
					require.Equal(tt, key, path[len(path)-1])
					expected = append(expected, key)
				} else {
					require.ErrorIs(tt, err, ErrKeyNotFound)
					require.Nil(tt, node)
				}
			}
			require.True(tt, sort.SliceIsSorted(expected, func(i, j int) bool {
				return expected[i] < expected[j]
			}))
			require.Equal(tt, expected, tree.InOrder())
			require.Equal(tt, int64(len(expected)), tree.Len())
			require.Len(tt, tree.PreOrder(), len(expected))
			require.Len(tt, tree.PostOrder(), len(expected))
		})
	}
}

func TestTreeTraversalOrders(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(tt *testing.T) {
			tree, err := NewTree[int](kind)
			require.NoError(tt, err)
			// Balanced insert order, so all three kinds end with the same shape.
			for _, key := range []int{4, 2, 6, 1, 3, 5, 7} {
				_, err = tree.Insert(key)
				require.NoError(tt, err)
			}
			require.Equal(tt, []int{4, 2, 1, 3, 6, 5, 7}, tree.PreOrder())
			require.Equal(tt, []int{1, 2, 3, 4, 5, 6, 7}, tree.InOrder())
			require.Equal(tt, []int{1, 3, 2, 5, 7, 6, 4}, tree.PostOrder())

			orders := []TraversalOrder{PreOrder, InOrder, PostOrder}
			lists := [][]int{tree.PreOrder(), tree.InOrder(), tree.PostOrder()}
			for i, order := range orders {
				keys := make([]int, 0, 7)
				tree.Walk(order, func(idx int64, node Node[int]) bool {
					require.Equal(tt, int64(len(keys)), idx)
					keys = append(keys, node.Key())
					return true
				})
				require.Equal(tt, lists[i], keys)
			}
		})
	}
}

func TestTreeSnapshotDetached(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(tt *testing.T) {
			tree, err := NewTree[int](kind)
			require.NoError(tt, err)
			for _, key := range []int{2, 1, 3} {
				_, err = tree.Insert(key)
				require.NoError(tt, err)
			}
			snap := tree.Snapshot()
			require.Equal(tt, 2, snap.Key)
			require.Equal(tt, 2, snap.Height)
			require.Equal(tt, 1, snap.Left.Key)
			require.Equal(tt, 3, snap.Right.Key)
			if kind == RedBlack {
				require.Equal(tt, Black, snap.Color)
				require.Equal(tt, Red, snap.Left.Color)
				require.Equal(tt, Red, snap.Right.Color)
			}

			_, err = tree.Delete(1)
			require.NoError(tt, err)
			_, err = tree.Insert(4)
			require.NoError(tt, err)
			require.Equal(tt, 1, snap.Left.Key)
			require.Nil(tt, snap.Right.Right)
			require.NotEqual(tt, snap, tree.Snapshot())
		})
	}
}

func TestTreeRelease(t *testing.T) {
	for _, kind := range allKinds {
		tree, err := NewTree[string](kind)
		require.NoError(t, err)
		for _, key := range []string{"m", "c", "x", "a"} {
			_, err = tree.Insert(key)
			require.NoError(t, err)
		}
		tree.Release()
		require.Equal(t, int64(0), tree.Len())
		require.Nil(t, tree.Root())
		require.False(t, tree.Contains("m"))

		_, err = tree.Insert("m")
		require.NoError(t, err)
		require.Equal(t, []string{"m"}, tree.InOrder())
	}
}

func TestValidateDetectsViolations(t *testing.T) {
	t.Run("order", func(tt *testing.T) {
		tree := NewBSTree[int]().(*bsTree[int])
		tree.root = &bstNode[int]{key: 5, left: &bstNode[int]{key: 9}, right: &bstNode[int]{key: 7}}
		tree.count = 3
		require.Error(tt, OrderViolationValidate[int](tree))
		require.Error(tt, Validate[int](tree))
	})
	t.Run("size", func(tt *testing.T) {
		tree := NewBSTree[int]().(*bsTree[int])
		tree.root = &bstNode[int]{key: 5}
		require.Error(tt, OrderViolationValidate[int](tree))
	})
	t.Run("avl height", func(tt *testing.T) {
		tree := NewAVLTree[int]().(*avlTree[int])
		tree.root = &avlNode[int]{key: 5, height: 1, left: &avlNode[int]{key: 1, height: 1}}
		tree.count = 2
		require.Error(tt, HeightViolationValidate[int](tree))
	})
	t.Run("avl balance", func(tt *testing.T) {
		tree := NewAVLTree[int]().(*avlTree[int])
		tree.root = &avlNode[int]{key: 5, height: 3, left: &avlNode[int]{
			key: 3, height: 2, left: &avlNode[int]{key: 1, height: 1},
		}}
		tree.count = 3
		require.Error(tt, HeightViolationValidate[int](tree))
		require.NoError(tt, OrderViolationValidate[int](tree))
	})
	t.Run("rbtree root", func(tt *testing.T) {
		tree := NewRBTree[int]().(*rbTree[int])
		_, _ = tree.Insert(1)
		tree.root.color = Red
		require.Error(tt, RootColorValidate[int](tree))
		require.Error(tt, Validate[int](tree))
	})
	t.Run("rbtree red", func(tt *testing.T) {
		tree := NewRBTree[int]().(*rbTree[int])
		_, _ = tree.Insert(2)
		_, _ = tree.Insert(1)
		_, _ = tree.Insert(3)
		tree.root.left.color = Red
		tree.root.color = Red
		require.Error(tt, RedViolationValidate[int](tree))
	})
	t.Run("rbtree black", func(tt *testing.T) {
		tree := NewRBTree[int]().(*rbTree[int])
		_, _ = tree.Insert(2)
		_, _ = tree.Insert(1)
		_, _ = tree.Insert(3)
		tree.root.left.color = Black
		require.Error(tt, BlackViolationValidate[int](tree))
		require.NoError(tt, RedViolationValidate[int](tree))
	})
}
