package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitQueueOrdersByTime(t *testing.T) {
	q := newWaitQueue()

	a1 := &activation{fn: func() {}}
	a2 := &activation{fn: func() {}}
	a3 := &activation{fn: func() {}}

	q.Push(3.0, a3)
	q.Push(1.0, a1)
	q.Push(2.0, a2)

	time, bucket := q.Pop()
	assert.Equal(t, VTimeInSec(1.0), time)
	assert.Equal(t, []*activation{a1}, bucket)

	time, bucket = q.Pop()
	assert.Equal(t, VTimeInSec(2.0), time)
	assert.Equal(t, []*activation{a2}, bucket)

	time, bucket = q.Pop()
	assert.Equal(t, VTimeInSec(3.0), time)
	assert.Equal(t, []*activation{a3}, bucket)
}

func TestWaitQueueKeepsInsertionOrderWithinBucket(t *testing.T) {
	q := newWaitQueue()

	a1 := &activation{fn: func() {}}
	a2 := &activation{fn: func() {}}
	a3 := &activation{fn: func() {}}

	q.Push(5.0, a1)
	q.Push(5.0, a2)
	q.Push(5.0, a3)

	require.Equal(t, 3, q.Len())

	time, bucket := q.Pop()
	assert.Equal(t, VTimeInSec(5.0), time)
	assert.Equal(t, []*activation{a1, a2, a3}, bucket)
}

func TestWaitQueuePeekTime(t *testing.T) {
	q := newWaitQueue()

	_, ok := q.PeekTime()
	assert.False(t, ok)

	q.Push(7.0, &activation{fn: func() {}})
	q.Push(4.0, &activation{fn: func() {}})

	time, ok := q.PeekTime()
	assert.True(t, ok)
	assert.Equal(t, VTimeInSec(4.0), time)
}
