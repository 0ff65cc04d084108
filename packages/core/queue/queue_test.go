package queue

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimSequence(t *testing.T) {
	q := New(3)
	assert.Equal(t, 3, q.Len())
	assert.False(t, q.SerialPass())

	for want := 0; want < 3; want++ {
		got, ok := q.Claim()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Claim()
	assert.False(t, ok)
	_, ok = q.Claim()
	assert.False(t, ok, "exhausted queue stays exhausted")
}

func TestEmptyQueue(t *testing.T) {
	for _, size := range []int{0, -1} {
		q := New(size)
		_, ok := q.Claim()
		assert.False(t, ok)
		assert.Equal(t, 0, q.Len())
	}
}

func TestReset(t *testing.T) {
	q := New(2)
	q.Claim()
	q.Claim()

	q.Reset()
	assert.True(t, q.SerialPass())

	got, ok := q.Claim()
	require.True(t, ok)
	assert.Equal(t, 0, got)
}

func TestConcurrentClaimsPartitionRange(t *testing.T) {
	for _, workers := range []int{1, 2, 8, 32} {
		for _, size := range []int{0, 1, 7, 500} {
			q := New(size)

			var mu sync.Mutex
			var claimed []int
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						i, ok := q.Claim()
						if !ok {
							return
						}
						mu.Lock()
						claimed = append(claimed, i)
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			sort.Ints(claimed)
			require.Len(t, claimed, size, "workers=%d size=%d", workers, size)
			for i, got := range claimed {
				assert.Equal(t, i, got)
			}
		}
	}
}
