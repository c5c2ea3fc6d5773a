package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gree/flare/queue"
	"github.com/gree/flare/worker"
)

func TestThread_SetPeerStateOp(t *testing.T) {
	th := worker.New()

	th.SetPeer("node1.local", 11211)
	host, port := th.Peer()
	require.Equal(t, "node1.local", host)
	require.Equal(t, 11211, port)

	th.SetState("wait")
	require.Equal(t, "wait", th.State())

	th.SetOp("ping")
	require.Equal(t, "ping", th.Op())
}

func TestThread_EnqueueDequeueOrder(t *testing.T) {
	th := worker.New()

	require.NoError(t, th.Enqueue(queue.UpdateMonitorOption{Threshold: 1}))
	require.NoError(t, th.Enqueue(queue.NodeSync{}))

	msg1, err := th.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, queue.TagUpdateMonitorOption, msg1.Tag())

	msg2, err := th.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, queue.TagNodeSync, msg2.Tag())
}

func TestThread_DequeueTimesOut(t *testing.T) {
	th := worker.New()

	_, err := th.Dequeue(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, worker.ErrTimedOut)
}

func TestThread_DequeueBlocksUntilMessageWhenTimeoutIsZero(t *testing.T) {
	th := worker.New()

	done := make(chan error, 1)

	go func() {
		_, err := th.Dequeue(context.Background(), 0)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, th.Enqueue(queue.UpdateMonitorOption{}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after message was enqueued")
	}
}

func TestThread_EnqueueFailsWhenInboxFull(t *testing.T) {
	th := worker.NewWithInboxSize(1)

	require.NoError(t, th.Enqueue(queue.UpdateMonitorOption{}))
	require.ErrorIs(t, th.Enqueue(queue.UpdateMonitorOption{}), worker.ErrInboxFull)
}

func TestThread_ShutdownFlag(t *testing.T) {
	th := worker.New()

	require.False(t, th.IsShutdownRequested())
	th.RequestShutdown()
	require.True(t, th.IsShutdownRequested())
}

func TestThread_DequeueRespectsContextCancellation(t *testing.T) {
	th := worker.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := th.Dequeue(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
