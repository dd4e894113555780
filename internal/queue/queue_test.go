package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selection struct {
	ID    int
	AFrac float64
}

func TestQueue_New(t *testing.T) {
	q := New[selection]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Zero(t, q.Len())
}

func TestQueue_Push(t *testing.T) {
	q := New[selection]()

	q.Push(selection{ID: 1})
	assert.Equal(t, 1, q.Len())

	q.Push(selection{ID: 2}, selection{ID: 3})
	assert.Equal(t, 3, q.Len())
	assert.False(t, q.Empty())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[selection]()
	q.Push(selection{ID: 1}, selection{ID: 2})

	items := q.GetAndEmpty()
	assert.Equal(t, []selection{{ID: 1}, {ID: 2}}, items)
	assert.True(t, q.Empty())

	// the returned slice is detached from later pushes
	q.Push(selection{ID: 9})
	assert.Equal(t, 1, items[0].ID)
	assert.Empty(t, New[selection]().GetAndEmpty())
}

func TestQueue_RequeueKeepsOrder(t *testing.T) {
	q := New[selection]()
	q.Push(selection{ID: 1}, selection{ID: 2})

	batch := q.GetAndEmpty()
	q.Push(selection{ID: 3})
	q.Requeue(batch...)

	assert.Equal(t, []selection{{ID: 1}, {ID: 2}, {ID: 3}}, q.GetAndEmpty())
}

func TestQueue_RequeueNothing(t *testing.T) {
	q := New[selection]()
	q.Requeue()
	assert.True(t, q.Empty())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Push(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[int]()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			q.Push(n)
		}(i)
		go func() {
			defer wg.Done()
			got := len(q.GetAndEmpty())
			mu.Lock()
			total += got
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, total+q.Len())
}
