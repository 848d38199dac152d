package systems

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainUntil runs job callbacks on the test goroutine until done reports
// true.
func drainUntil(t *testing.T, js *JobSystem, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for jobs")
		js.Update()
		time.Sleep(time.Millisecond)
	}
}

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	require.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	require.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobCallbacksRunOnUpdate(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	ran := make(chan struct{})
	var got interface{}
	_, err = js.Submit(JobTask{
		Name: "answer",
		Run: func(ctx context.Context) (interface{}, error) {
			close(ran)
			return 42, nil
		},
		OnComplete: func(result interface{}) { got = result },
	})
	require.NoError(t, err)

	<-ran
	assert.Nil(t, got, "callbacks wait for Update")
	assert.Equal(t, 1, js.Pending())

	drainUntil(t, js, func() bool { return got != nil })
	assert.Equal(t, 42, got)
	assert.Equal(t, 0, js.Pending())
}

func TestJobFailureCallback(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	boom := errors.New("boom")
	var failed error
	completed := false
	_, err = js.Submit(JobTask{
		Name:       "fail",
		Run:        func(ctx context.Context) (interface{}, error) { return nil, boom },
		OnComplete: func(interface{}) { completed = true },
		OnFailure:  func(err error) { failed = err },
	})
	require.NoError(t, err)

	drainUntil(t, js, func() bool { return failed != nil })
	assert.ErrorIs(t, failed, boom)
	assert.False(t, completed)
}

func TestJobRequiresRun(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	_, err = js.Submit(JobTask{Name: "empty"})
	require.Error(t, err)
}

func TestShutdownCancelsAndRejects(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	_, err = js.Submit(JobTask{
		Name: "wait",
		Run: func(ctx context.Context) (interface{}, error) {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, js.Shutdown())
	<-cancelled
	require.NoError(t, js.Shutdown())

	_, err = js.Submit(JobTask{Name: "late", Run: func(context.Context) (interface{}, error) { return nil, nil }})
	require.ErrorIs(t, err, ErrJobSystemClosed)
	assert.Equal(t, 0, js.Pending())
}
