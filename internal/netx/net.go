// Package netx provides the connectivity probe used to gate sync operations.
package netx

import (
	"context"
	"net"
	"time"
)

// Checker reports whether a network path to the backend is currently
// available. Implementations must be cheap enough to call before every sync.
type Checker interface {
	Online(ctx context.Context) bool
}

// DialChecker probes reachability by opening a TCP connection to a fixed
// address and closing it immediately.
type DialChecker struct {
	addr    string
	timeout time.Duration
}

// NewDialChecker returns a Checker probing addr (host:port). A non-positive
// timeout defaults to 3 seconds.
func NewDialChecker(addr string, timeout time.Duration) *DialChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DialChecker{addr: addr, timeout: timeout}
}

func (c *DialChecker) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
