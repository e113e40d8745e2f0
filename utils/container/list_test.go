package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
)

func TestListInit(t *testing.T) {
	l := &container.List[string]{}
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Equal(t, 0, l.Len())
	_, ok := l.PopFront()
	assert.False(t, ok)
}

func TestListOperation(t *testing.T) {
	l := &container.List[int]{}

	// test: insert

	// ^, 1, ^
	n1 := container.NewListNode(1)
	l.PushBack(n1)
	// ^, 2, 1, ^
	n2 := container.NewListNode(2)
	l.PushFront(n2)
	// ^, 3, 2, 1, ^
	n3 := container.NewListNode(3)
	n2.InsertBefore(n3)
	// ^, 3, 2, 1, 4, ^
	n4 := container.NewListNode(4)
	n1.InsertAfter(n4)
	assert.Equal(t, 4, l.Len())

	// test: first last next prev

	n := l.First()
	assert.Equal(t, n3, n)
	n = n.Next()
	assert.Equal(t, n2, n)
	n = n.Next()
	assert.Equal(t, n1, n)
	assert.Equal(t, n, n.Next().Prev())
	assert.Equal(t, n, n.Prev().Next())
	n = n.Next()
	assert.Equal(t, n4, n)
	assert.Equal(t, n4, l.Last())
	assert.Equal(t, []int{3, 2, 1, 4}, l.Values())

	// test: remove from the middle keeps relative order

	l.Remove(n2)
	assert.Equal(t, []int{3, 1, 4}, l.Values())
	assert.Nil(t, n2.Parent())
	l.PushBack(n2)
	assert.Equal(t, []int{3, 1, 4, 2}, l.Values())

	// test: pop front

	v, ok := l.PopFront()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, n1, l.First())
	assert.Equal(t, 3, l.Len())
}

func TestListFindAndRemoveIf(t *testing.T) {
	l := &container.List[int]{}
	for i := 1; i <= 6; i++ {
		l.PushBackValue(i)
	}
	node := l.Find(func(v int) bool { return v > 3 })
	if assert.NotNil(t, node) {
		assert.Equal(t, 4, node.Value)
	}
	assert.Nil(t, l.Find(func(v int) bool { return v > 10 }))

	removed := l.RemoveIf(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, 3, removed)
	assert.Equal(t, []int{1, 3, 5}, l.Values())
	assert.Equal(t, 5, l.Last().Value)
}
