package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fails        int
	last         time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with the same semantics as PG.
type Memory struct {
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time

	mu    sync.Mutex
	peers map[string]*entry
}

// NewMemory constructs an in-process limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
		peers:    map[string]*entry{},
	}
}

func (m *Memory) Allow(_ context.Context, peer []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.peers[string(peer)]
	if !ok {
		return true, 0, nil
	}
	if d := e.blockedUntil.Sub(m.now()); d > 0 {
		return false, d, nil
	}
	return true, 0, nil
}

func (m *Memory) Failure(_ context.Context, peer []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.peers[string(peer)]
	if !ok {
		e = &entry{}
		m.peers[string(peer)] = e
	}
	if now.Sub(e.last) > m.window {
		e.fails = 0
	}
	e.fails++
	e.last = now
	if e.fails < m.maxFails {
		return false, 0, nil
	}
	e.blockedUntil = now.Add(m.blockFor)
	return true, m.blockFor, nil
}
