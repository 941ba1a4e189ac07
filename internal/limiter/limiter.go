// Package limiter throttles peers that keep presenting invalid credentials.
package limiter

import (
	"context"
	"crypto/sha256"
	"net"
	"time"
)

// Limiter tracks failed authentications per peer and places temporary blocks.
type Limiter interface {
	// Allow reports whether the peer may authenticate and, if not, for how long it stays blocked.
	Allow(ctx context.Context, peer []byte) (bool, time.Duration, error)
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, peer []byte) (bool, time.Duration, error)
}

// HashPeer returns a stable hash of the peer host so raw addresses are never stored.
// The port is dropped: reconnecting must not reset the counter.
func HashPeer(addr string) []byte {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return h[:]
}
