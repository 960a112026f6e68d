package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func jobs(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{ID: fmt.Sprintf("j%d", i), Prompt: fmt.Sprintf("prompt %d", i)}
	}
	return out
}

func TestRun_EmitsSuccessesAndSkipsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var got []string
	fn := func(_ context.Context, j Job) (string, error) {
		switch j.ID {
		case "j1":
			return "", errors.New("model refused")
		case "j2":
			return "", nil
		}
		return "url-" + j.ID, nil
	}

	failed, err := New(2, nil).Run(context.Background(), jobs(4), fn, func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r.ID+"="+r.URL)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	sort.Strings(got)
	assert.Equal(t, []string{"j0=url-j0", "j3=url-j3"}, got)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak int64
	fn := func(_ context.Context, j Job) (string, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "u", nil
	}

	_, err := New(3, nil).Run(context.Background(), jobs(12), fn, func(Result) {})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var started int64
	fn := func(ctx context.Context, j Job) (string, error) {
		if atomic.AddInt64(&started, 1) == 1 {
			cancel()
		}
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := New(1, nil).Run(ctx, jobs(10), fn, func(Result) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, atomic.LoadInt64(&started), int64(10))
}
