package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_RunsJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	r := New(8, 2, time.Second, func(_ context.Context, j Job) {
		mu.Lock()
		seen[j.Key]++
		mu.Unlock()
	})
	assert.True(t, r.Enqueue(Job{Key: "a"}))
	assert.True(t, r.Enqueue(Job{Key: "b"}))
	r.Close()

	assert.Equal(t, map[string]int{"a": 1, "b": 1}, seen)
}

func TestRefresher_CoalescesInFlightKeys(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	r := New(8, 1, time.Second, func(_ context.Context, j Job) {
		if runs.Add(1) == 1 {
			close(started)
		}
		<-release
	})

	require.True(t, r.Enqueue(Job{Key: "appraisal-1"}))
	<-started
	assert.False(t, r.Enqueue(Job{Key: "appraisal-1"}), "duplicate while running")
	close(release)
	r.Close()
	assert.Equal(t, int32(1), runs.Load())
}

func TestRefresher_DropsWhenSaturated(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	r := New(1, 1, time.Second, func(context.Context, Job) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})
	require.True(t, r.Enqueue(Job{Key: "running"}))
	<-started
	require.True(t, r.Enqueue(Job{Key: "queued"}))
	assert.False(t, r.Enqueue(Job{Key: "overflow"}))

	close(block)
	r.Close()
}

func TestRefresher_JobContextHasDeadline(t *testing.T) {
	var hadDeadline atomic.Bool
	r := New(1, 1, 50*time.Millisecond, func(ctx context.Context, _ Job) {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
	})
	r.Enqueue(Job{Key: "x"})
	r.Close()
	assert.True(t, hadDeadline.Load())
}

func TestRefresher_EnqueueAfterCloseIsRejected(t *testing.T) {
	r := New(4, 1, time.Second, func(context.Context, Job) {})
	r.Close()
	r.Close()
	assert.False(t, r.Enqueue(Job{Key: "late"}))
}

func TestRefresher_EnqueueRacingClose(t *testing.T) {
	r := New(64, 2, time.Second, func(context.Context, Job) {})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				r.Enqueue(Job{Key: fmt.Sprintf("w%d-%d", i, n)})
			}
		}(i)
	}
	assert.NotPanics(t, r.Close)
	wg.Wait()
}
