package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAscComparator(t *testing.T) {
	cmp := AscComparator[int]()
	assert.Equal(t, int64(0), cmp(1, 1))
	assert.Equal(t, int64(-1), cmp(1, 2))
	assert.Equal(t, int64(1), cmp(2, 1))

	strCmp := AscComparator[string]()
	assert.Equal(t, int64(-1), strCmp("abc", "abd"))
	assert.Equal(t, int64(1), strCmp("b", "abc"))
}

func TestDescComparator(t *testing.T) {
	cmp := DescComparator[float64]()
	assert.Equal(t, int64(0), cmp(1.5, 1.5))
	assert.Equal(t, int64(1), cmp(1.0, 2.0))
	assert.Equal(t, int64(-1), cmp(2.0, 1.0))
}
