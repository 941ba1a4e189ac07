package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/and161185/docgate/internal/model"
)

// Publisher is the part of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Event is the JSON body published for every notification.
//
// Subject convention: <prefix>.<type in lower case>, e.g. docgate.notifications.approval_requested.
type Event struct {
	EventType string            `json:"event_type"`
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SentAt    time.Time         `json:"sent_at"`
}

// NATSSink mirrors notifications onto a NATS subject tree.
type NATSSink struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

// NewNATSSink returns a sink publishing under prefix.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: strings.TrimSuffix(prefix, "."), now: time.Now}
}

// Subject returns the subject a notification of type typ is published on.
func (s *NATSSink) Subject(typ string) string {
	return s.prefix + "." + strings.ToLower(typ)
}

// Notify publishes n. It does not wait for a server ack.
func (s *NATSSink) Notify(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Event{
		EventType: n.Type,
		ID:        n.ID.String(),
		Recipient: n.UserID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		SentAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.pub.Publish(s.Subject(n.Type), data)
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
