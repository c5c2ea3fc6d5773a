package conn_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gree/flare/conn"
)

// pipeDialer returns a Dialer backed by an in-memory net.Pipe, handing the
// server half to the test so it can drive the protocol from both ends.
func pipeDialer(server chan net.Conn) conn.Dialer {
	return func(_ context.Context, _ string) (net.Conn, error) {
		client, srv := net.Pipe()
		server <- srv
		return client, nil
	}
}

func TestConnection_OpenIsAvailable(t *testing.T) {
	server := make(chan net.Conn, 1)
	c := conn.NewWithDialer(pipeDialer(server))

	require.False(t, c.IsAvailable())

	err := c.Open(context.Background(), "peer.local", 11211)
	require.NoError(t, err)
	require.True(t, c.IsAvailable())

	srv := <-server
	defer srv.Close()
}

func TestConnection_SendReceive(t *testing.T) {
	server := make(chan net.Conn, 1)
	c := conn.NewWithDialer(pipeDialer(server))

	require.NoError(t, c.Open(context.Background(), "peer.local", 11211))
	srv := <-server
	defer srv.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		buf := make([]byte, 1024)
		n, _ := srv.Read(buf)
		_, _ = srv.Write(buf[:n])
	}()

	deadline := time.Now().Add(time.Second)
	require.NoError(t, c.Send(deadline, []byte("PING")))

	reply, err := c.Receive(deadline)
	require.NoError(t, err)
	require.Equal(t, []byte("PING"), reply)

	<-done
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	c := conn.New()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, c.IsAvailable())
}

func TestConnection_OpenFailureIsNonFatal(t *testing.T) {
	c := conn.NewWithDialer(func(context.Context, string) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Err: context.DeadlineExceeded}
	})

	err := c.Open(context.Background(), "unreachable.local", 11211)
	require.Error(t, err)
	require.False(t, c.IsAvailable())
}
