package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cuemby/tableside/pkg/metrics"
)

// ComponentAPI is the component name reported by the API reachability check
const ComponentAPI = metrics.ComponentAPI

// TCPChecker checks that the API host accepts connections
type TCPChecker struct {
	// Address is the TCP address to check (e.g., "localhost:8000")
	Address string
}

// NewTCPChecker creates a checker for address
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{Address: address}
}

// NewTCPCheckerForURL derives host:port from an API base URL
func NewTCPCheckerForURL(rawURL string) (*TCPChecker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return NewTCPChecker(net.JoinHostPort(u.Hostname(), port)), nil
}

// Check performs the TCP health check
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("connection failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	_ = conn.Close()

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("connected to %s", t.Address),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

func (t *TCPChecker) Component() string {
	return ComponentAPI
}
