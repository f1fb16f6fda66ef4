package tree

import (
	randv2 "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBSTree(t *testing.T, keys ...int) Tree[int] {
	tree := NewBSTree[int]()
	for _, key := range keys {
		status, err := tree.Insert(key)
		require.NoError(t, err)
		require.Equal(t, Inserted, status)
	}
	return tree
}

func TestBSTreeTraversal(t *testing.T) {
	tree := newTestBSTree(t, 5, 3, 8, 1, 4, 7, 9)
	require.Equal(t, int64(7), tree.Len())
	require.Equal(t, []int{5, 3, 1, 4, 8, 7, 9}, tree.PreOrder())
	require.Equal(t, []int{1, 3, 4, 5, 7, 8, 9}, tree.InOrder())
	require.Equal(t, []int{1, 4, 3, 7, 9, 8, 5}, tree.PostOrder())

	// Restartable, recomputed on each call.
	require.Equal(t, tree.InOrder(), tree.InOrder())

	visited := make([]int, 0, 3)
	tree.Walk(PreOrder, func(idx int64, node Node[int]) bool {
		visited = append(visited, node.Key())
		return idx < 2
	})
	require.Equal(t, []int{5, 3, 1}, visited)

	require.Equal(t, Properties{
		Height:   3,
		Nodes:    7,
		Leaves:   4,
		Internal: 3,
	}, tree.Properties())

	_min, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, 1, _min)
	_max, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, 9, _max)
}

func TestBSTreeDuplicateInsertIgnored(t *testing.T) {
	tree := newTestBSTree(t, 5, 3, 8)
	before := tree.Snapshot()
	status, err := tree.Insert(3)
	require.NoError(t, err)
	require.Equal(t, AlreadyPresent, status)
	require.Equal(t, int64(3), tree.Len())
	require.Equal(t, before, tree.Snapshot())
}

func TestBSTreeSearchPath(t *testing.T) {
	tree := newTestBSTree(t, 5, 3, 8, 1, 4, 7, 9)

	node, path, err := tree.Search(4)
	require.NoError(t, err)
	require.Equal(t, 4, node.Key())
	require.Equal(t, []int{5, 3, 4}, path)

	node, path, err = tree.Search(6)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Nil(t, node)
	require.Equal(t, []int{5, 8, 7}, path)

	require.True(t, tree.Contains(9))
	require.False(t, tree.Contains(10))
}

func TestBSTreeDeleteTwoChildren(t *testing.T) {
	tree := newTestBSTree(t, 5, 3, 8, 1, 4, 7, 9)
	oldThree := tree.Root().Left()

	trace, err := tree.Delete(3)
	require.NoError(t, err)
	require.Equal(t, []int{5, 3, 4}, trace.Path)
	require.Empty(t, trace.Fixup)

	// The node keeps its place and takes the successor key.
	replaced := tree.Root().Left()
	require.Same(t, oldThree.(*bstNode[int]), replaced.(*bstNode[int]))
	require.Equal(t, 4, replaced.Key())
	require.Equal(t, 1, replaced.Left().Key())
	require.Nil(t, replaced.Right())
	require.Equal(t, []int{1, 4, 5, 7, 8, 9}, tree.InOrder())
	require.NoError(t, Validate[int](tree))
}

func TestBSTreeDeleteCases(t *testing.T) {
	testcases := []struct {
		name     string
		key      int
		preOrder []int
	}{
		{
			name:     "leaf",
			key:      1,
			preOrder: []int{5, 3, 4, 8, 7, 9, 20, 30},
		},
		{
			name:     "only right child",
			key:      20,
			preOrder: []int{5, 3, 1, 4, 8, 7, 9, 30},
		},
		{
			name:     "root with two children",
			key:      5,
			preOrder: []int{7, 3, 1, 4, 8, 9, 20, 30},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := newTestBSTree(tt, 5, 3, 8, 1, 4, 7, 9, 20, 30)
			_, err := tree.Delete(tc.key)
			require.NoError(tt, err)
			require.Equal(tt, tc.preOrder, tree.PreOrder())
			require.Equal(tt, int64(8), tree.Len())
			require.False(tt, tree.Contains(tc.key))
			require.NoError(tt, Validate[int](tree))
		})
	}
}

func TestBSTreeDeleteAbsent(t *testing.T) {
	tree := newTestBSTree(t, 5, 3, 8)
	before := tree.Snapshot()
	trace, err := tree.Delete(4)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Equal(t, []int{5, 3}, trace.Path)
	require.Equal(t, before, tree.Snapshot())
	require.Equal(t, int64(3), tree.Len())

	empty := NewBSTree[int]()
	_, err = empty.Delete(1)
	require.ErrorIs(t, err, ErrKeyNotFound)
	_, ok := empty.Min()
	require.False(t, ok)
}

func TestBSTreeDegenerated(t *testing.T) {
	total := 10_000
	tree := NewBSTree[int]()
	for i := 0; i < total; i++ {
		_, err := tree.Insert(i)
		require.NoError(t, err)
	}
	props := tree.Properties()
	require.Equal(t, total, props.Height)
	require.Equal(t, int64(1), props.Leaves)

	tree.Walk(InOrder, func(idx int64, node Node[int]) bool {
		require.Equal(t, int(idx), node.Key())
		return true
	})
	for i := 0; i < total; i++ {
		_, err := tree.Delete(i)
		require.NoError(t, err)
	}
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestBSTreeRandomInsertAndRemove(t *testing.T) {
	tree := NewBSTree[int]()
	present := make(map[int]struct{}, 1000)
	for i := 0; i < 2000; i++ {
		key := randv2.IntN(1000)
		if randv2.IntN(3) > 0 {
			status, err := tree.Insert(key)
			require.NoError(t, err)
			if _, ok := present[key]; ok {
				require.Equal(t, AlreadyPresent, status)
			} else {
				require.Equal(t, Inserted, status)
			}
			present[key] = struct{}{}
		} else {
			_, err := tree.Delete(key)
			if _, ok := present[key]; ok {
				require.NoError(t, err)
				delete(present, key)
			} else {
				require.ErrorIs(t, err, ErrKeyNotFound)
			}
		}
		require.NoError(t, Validate[int](tree))
	}
	require.Equal(t, int64(len(present)), tree.Len())
}

func BenchmarkBSTree_Random(b *testing.B) {
	b.StopTimer()
	tree := NewBSTree[int]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tree.Insert(rngArr[i])
	}
}
