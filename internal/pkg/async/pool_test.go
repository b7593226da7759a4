package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecutesAllTasks(t *testing.T) {
	pool := NewPool[int](3)

	tasks := []Task[int]{
		{Name: "a", Execute: func() (int, error) { return 1, nil }},
		{Name: "b", Execute: func() (int, error) { return 2, nil }},
		{Name: "c", Execute: func() (int, error) { return 0, errors.New("boom") }},
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results["a"].Data)
	assert.Equal(t, 2, results["b"].Data)
	assert.Error(t, results["c"].Err)
}

func TestPoolKeepsResultType(t *testing.T) {
	pool := NewPool[[]byte](2)

	results := pool.Execute(context.Background(), []Task[[]byte]{
		{Name: "png", Execute: func() ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil }},
	})

	require.Len(t, results, 1)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, results["png"].Data)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool[struct{}](2)

	var active, peak int32
	task := func() (struct{}, error) {
		current := atomic.AddInt32(&active, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}, nil
	}

	tasks := make([]Task[struct{}], 6)
	for i := range tasks {
		tasks[i] = Task[struct{}]{Name: string(rune('a' + i)), Execute: task}
	}

	results := pool.Execute(context.Background(), tasks)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolStopsOnCancelledContext(t *testing.T) {
	pool := NewPool[int](1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := pool.Execute(ctx, []Task[int]{
		{Name: "a", Execute: func() (int, error) { return 1, nil }},
	})
	assert.LessOrEqual(t, len(results), 1)
}
