package operation

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gree/flare/conn"
)

const pingIdent = "ping"

var (
	pingRequest  = []byte("PING")
	pingResponse = []byte("PONG")
)

// Ping is the liveness probe the monitor sends on every idle timeout. It
// writes a fixed PING frame and expects a PONG frame back within the
// deadline.
type Ping struct {
	// Timeout bounds the round trip. Zero means no deadline, which the
	// monitor never actually uses — it always supplies a positive timeout.
	Timeout time.Duration
}

// NewPing returns a Ping operation with the given round-trip timeout.
func NewPing(timeout time.Duration) *Ping {
	return &Ping{Timeout: timeout}
}

func (p *Ping) Ident() string {
	return pingIdent
}

func (p *Ping) RunClient(ctx context.Context, c *conn.Connection) error {
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = time.Now().Add(p.Timeout)
	}

	if dl, ok := ctx.Deadline(); ok && (deadline.IsZero() || dl.Before(deadline)) {
		deadline = dl
	}

	if err := c.Send(deadline, pingRequest); err != nil {
		return fmt.Errorf("ping: send: %w", err)
	}

	reply, err := c.Receive(deadline)
	if err != nil {
		return fmt.Errorf("ping: receive: %w", err)
	}

	if !bytes.Equal(reply, pingResponse) {
		return fmt.Errorf("ping: unexpected reply %q", reply)
	}

	return nil
}
