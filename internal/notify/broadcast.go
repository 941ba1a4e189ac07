package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/docgate/internal/model"
)

// Broadcaster delivers notifications with per-recipient retries. Admin
// fan-out runs concurrently and every call is bounded by a timeout, so a slow
// sink costs the caller at most that long.
type Broadcaster struct {
	dir      Directory
	sink     Sink
	attempts uint64
	base     time.Duration
	timeout  time.Duration
	fanout   int
	newID    func() (uuid.UUID, error)
	log      *zap.Logger
}

// Option tunes a Broadcaster.
type Option func(*Broadcaster)

// WithAttempts sets the total number of delivery attempts per recipient.
func WithAttempts(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.attempts = uint64(n)
		}
	}
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.base = d
		}
	}
}

// WithTimeout bounds one ToUser or ToAdmins call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithFanout caps the number of recipients delivered to at once.
func WithFanout(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.fanout = n
		}
	}
}

// NewBroadcaster wires a directory and a sink.
func NewBroadcaster(dir Directory, sink Sink, log *zap.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		dir:      dir,
		sink:     sink,
		attempts: 3,
		base:     100 * time.Millisecond,
		timeout:  5 * time.Second,
		fanout:   8,
		newID:    uuid.NewV4,
		log:      log.With(zap.String("component", "notify")),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// ToAdmins sends a copy of n to every administrator. It returns the joined
// failures; one recipient failing never stops the others.
func (b *Broadcaster) ToAdmins(ctx context.Context, n model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	admins, err := b.dir.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	var (
		g   errgroup.Group
		mu  sync.Mutex
		all error
	)
	g.SetLimit(b.fanout)
	for _, id := range admins {
		g.Go(func() error {
			if err := b.deliver(ctx, id, n); err != nil {
				mu.Lock()
				all = multierr.Append(all, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return all
}

// ToUser sends n to one user.
func (b *Broadcaster) ToUser(ctx context.Context, userID uuid.UUID, n model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.deliver(ctx, userID, n)
}

// deliver stamps n with a fresh ID that every retry reuses; sinks dedupe on it.
func (b *Broadcaster) deliver(ctx context.Context, userID uuid.UUID, n model.Notification) error {
	id, err := b.newID()
	if err != nil {
		return fmt.Errorf("notify %s: notification id: %w", userID, err)
	}
	n.ID = id
	n.UserID = userID

	backoff := retry.WithMaxRetries(b.attempts-1, retry.NewExponential(b.base))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := b.sink.Notify(ctx, n); err != nil {
			b.log.Debug("notification attempt failed",
				zap.String("user_id", userID.String()),
				zap.String("type", n.Type),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	return nil
}
