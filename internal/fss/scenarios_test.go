package fss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEndToEndScenarios exercises the six seed scenarios end to end,
// each as its own FSS instance so they don't interact.
func TestEndToEndScenarios(t *testing.T) {
	t.Run("create append read cycle", func(t *testing.T) {
		s := New(1<<20, 10, 0, nil)
		require.NoError(t, s.Create("/f1", 1, true, nil, nil))
		require.NoError(t, s.Append("/f1", 1, []byte("abc"), nil, nil))
		require.NoError(t, s.Append("/f1", 1, []byte("def"), nil, nil))

		got, err := s.Read("/f1", 1)
		require.NoError(t, err)
		assert.Equal(t, "abcdef", string(got))
		require.NoError(t, s.Close("/f1", 1))
	})

	t.Run("create fails when file exists", func(t *testing.T) {
		s := New(1<<20, 10, 0, nil)
		require.NoError(t, s.Create("/f1", 1, true, nil, nil))
		err := s.Create("/f1", 2, false, nil, nil)
		assert.ErrorIs(t, err, EEXIST)
	})

	t.Run("file count eviction", func(t *testing.T) {
		s := New(1<<20, 3, 0, nil)
		sb := &collectingSendback{}
		require.NoError(t, s.Create("/a", 1, false, sb, nil))
		require.NoError(t, s.Create("/b", 1, false, sb, nil))
		require.NoError(t, s.Create("/c", 1, false, sb, nil))

		require.NoError(t, s.Create("/d", 1, false, sb, nil))

		victims := sb.all()
		require.Len(t, victims, 1)
		assert.Equal(t, Path("/a"), victims[0].Path)
		assert.Empty(t, victims[0].Data)

		for _, p := range []Path{"/b", "/c", "/d"} {
			data, err := s.Read(p, 1)
			require.NoError(t, err, "create leaves the creator OPEN")
			assert.Empty(t, data)
		}
		_, err := s.Read("/a", 1)
		assert.ErrorIs(t, err, ENOENT)
	})

	t.Run("byte eviction", func(t *testing.T) {
		s := New(135, 10, 0, nil)
		sb := &collectingSendback{}

		require.NoError(t, s.Create("/a", 1, true, nil, nil))
		require.NoError(t, s.Write("/a", 1, make([]byte, 90), nil, nil))
		_, _, err := s.Unlock("/a", 1)
		require.NoError(t, err)

		require.NoError(t, s.Create("/b", 2, true, nil, nil))
		require.NoError(t, s.Write("/b", 2, make([]byte, 40), nil, nil))
		_, _, err = s.Unlock("/b", 2)
		require.NoError(t, err)

		require.NoError(t, s.Create("/c", 3, true, nil, nil))
		require.NoError(t, s.Write("/c", 3, make([]byte, 20), sb, nil))

		victims := sb.all()
		require.Len(t, victims, 1)
		assert.Equal(t, Path("/a"), victims[0].Path)

		assert.Equal(t, int64(60), s.Stats().BytesUsed)
	})

	t.Run("lock queue FIFO", func(t *testing.T) {
		s := New(1<<20, 10, 0, nil)
		require.NoError(t, s.Create("/f", 1, true, nil, nil))

		results := make(chan struct {
			client ClientID
			err    error
		}, 3)
		for _, c := range []ClientID{2, 3, 4} {
			c := c
			go func() {
				err := s.Lock("/f", c)
				results <- struct {
					client ClientID
					err    error
				}{c, err}
			}()
			time.Sleep(20 * time.Millisecond)
		}

		_, _, err := s.Unlock("/f", 1)
		require.NoError(t, err)
		r2 := <-results
		assert.Equal(t, ClientID(2), r2.client)
		require.NoError(t, r2.err)

		_, _, err = s.Unlock("/f", 2)
		require.NoError(t, err)
		r3 := <-results
		assert.Equal(t, ClientID(3), r3.client)
		require.NoError(t, r3.err)

		wh := newCollectingWaitHandler()
		require.NoError(t, s.Remove("/f", 3, wh))
		r4 := <-results
		assert.Equal(t, ClientID(4), r4.client)
		assert.ErrorIs(t, r4.err, ENOENT)
	})

	t.Run("client cleanup promotes waiter", func(t *testing.T) {
		s := New(1<<20, 10, 0, nil)
		require.NoError(t, s.Create("/f", 1, true, nil, nil))

		done := make(chan error, 1)
		go func() { done <- s.Lock("/f", 2) }()
		time.Sleep(20 * time.Millisecond)

		promoted := s.ClientCleanup(1)
		require.Equal(t, []ClientID{2}, promoted)
		require.NoError(t, <-done)

		require.NoError(t, s.Open("/f", 3, false))
		_, err := s.Read("/f", 3)
		assert.ErrorIs(t, err, EPERM)
	})
}
