package probe

import (
	"context"
	"net"
	"time"
)

// Result is what a successful reachability check reports.
type Result struct {
	ResponseTimeMs int64
}

// Checker performs a bounded reachability check against a proxy address.
// The proxy lifecycle manager depends on this interface so batch validation
// can run against a fake in tests.
type Checker interface {
	Check(ctx context.Context, addr string) (Result, error)
}

// TCPChecker dials the proxy address over TCP with a bounded timeout.
type TCPChecker struct {
	Timeout time.Duration
}

const DefaultTimeout = 10 * time.Second

func NewTCPChecker(timeout time.Duration) *TCPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TCPChecker{Timeout: timeout}
}

func (c *TCPChecker) Check(ctx context.Context, addr string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{}, err
	}
	conn.Close()
	return Result{ResponseTimeMs: time.Since(start).Milliseconds()}, nil
}
