package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrdering(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(i))
	}
	for i := 0; i < 5; i++ {
		v, res := q.Pop(false)
		require.Equal(t, PopOK, res)
		assert.Equal(t, i, v)
	}
	_, res := q.Pop(false)
	assert.Equal(t, PopEmpty, res)
}

func TestPushOnClosedFails(t *testing.T) {
	q := New[int]()
	q.Close()
	err := q.Push(1)
	assert.ErrorIs(t, err, ErrClosed{})
}

func TestNonBlockingPopOnClosedEmpty(t *testing.T) {
	q := New[int]()
	q.Close()
	_, res := q.Pop(false)
	assert.Equal(t, PopClosed, res)
}

func TestBlockingPopWakesOnPush(t *testing.T) {
	q := New[string]()
	done := make(chan string, 1)
	go func() {
		v, res := q.Pop(true)
		if res == PopOK {
			done <- v
		} else {
			done <- "unexpected:" + res.String()
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push("hello"))

	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("blocking Pop never woke up")
	}
}

func TestBlockingPopUnblocksOnClose(t *testing.T) {
	q := New[int]()
	done := make(chan PopResult, 1)
	go func() {
		_, res := q.Pop(true)
		done <- res
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case res := <-done:
		assert.Equal(t, PopClosedAndEmpty, res)
	case <-time.After(time.Second):
		t.Fatal("blocking Pop never unblocked on Close")
	}
}

func TestFlushCallsFreeInOrder(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(i))
	}
	var freed []int
	q.Flush(func(v int) { freed = append(freed, v) })
	assert.Equal(t, []int{1, 2, 3}, freed)
	assert.Equal(t, 0, q.Len())
}

func TestDestroyClosesAndFlushes(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Push(1))
	var freed []int
	q.Destroy(func(v int) { freed = append(freed, v) })
	assert.Equal(t, []int{1}, freed)
	assert.False(t, q.IsOpen())
	err := q.Push(2)
	assert.Error(t, err)
}

func TestIteratorIsExclusive(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Push(1))

	it, err := q.NewIterator()
	require.NoError(t, err)

	_, err = q.NewIterator()
	assert.ErrorIs(t, err, ErrIteratorActive)

	it.Close()
	it2, err := q.NewIterator()
	require.NoError(t, err)
	it2.Close()
}

func TestIteratorBlocksPushAndPop(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Push(1))

	it, err := q.NewIterator()
	require.NoError(t, err)

	pushed := make(chan struct{})
	go func() {
		require.NoError(t, q.Push(2))
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push proceeded while an iterator was active")
	case <-time.After(20 * time.Millisecond):
	}

	it.Close()
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push never proceeded after iterator closed")
	}
}

func TestIteratorNextAndRemove(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Push(i))
	}

	it, err := q.NewIterator()
	require.NoError(t, err)

	var kept []int
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		if v%2 == 0 {
			removed := it.Remove()
			assert.Equal(t, v, removed)
			continue
		}
		kept = append(kept, v)
	}
	it.Close()

	assert.Equal(t, []int{1, 3, 5}, kept)
	assert.Equal(t, 3, q.Len())

	var remaining []int
	for {
		v, res := q.Pop(false)
		if res != PopOK {
			break
		}
		remaining = append(remaining, v)
	}
	assert.Equal(t, []int{1, 3, 5}, remaining)
}

func TestIteratorRemoveHeadAndTail(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(i))
	}
	it, err := q.NewIterator()
	require.NoError(t, err)

	v, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, 1, v)
	it.Remove() // remove head

	v, ok = it.Next()
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = it.Next()
	require.True(t, ok)
	require.Equal(t, 3, v)
	it.Remove() // remove tail

	_, ok = it.Next()
	assert.False(t, ok)
	it.Close()

	assert.Equal(t, 1, q.Len())
	remaining, res := q.Pop(false)
	require.Equal(t, PopOK, res)
	assert.Equal(t, 2, remaining)
}

func TestConcurrentPushPop(t *testing.T) {
	q := New[int]()
	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			require.NoError(t, q.Push(v))
		}(i)
	}

	results := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, res := q.Pop(true)
			require.Equal(t, PopOK, res)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for v := range results {
		seen[v] = true
	}
	assert.Len(t, seen, n)
}
