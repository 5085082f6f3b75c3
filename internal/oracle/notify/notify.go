// Package notify publishes lifecycle notifications.
//
// Emission is fire-and-forget: delivery is not guaranteed and consumers must
// poll request status as the source of truth. Publishers therefore never
// block the pipeline and never return errors to it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"verivote/internal/oracle/metrics"
	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
)

// Kind identifies a lifecycle notification.
type Kind string

const (
	KindRequestCreated   Kind = "request_created"
	KindRequestCompleted Kind = "request_completed"
)

// Notification is one lifecycle event. It carries a projection of the
// request, never the raw subject identifier.
type Notification struct {
	ID         string
	Kind       Kind
	RequestID  id.RequestID
	Wallet     id.WalletAddress
	ElectionID id.ElectionID
	Status     models.Status
	IsVerified *bool
	EmittedAt  time.Time
}

// NewNotification builds a notification from a request snapshot.
func NewNotification(kind Kind, req models.VerificationRequest, now time.Time) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		RequestID:  req.ID,
		Wallet:     req.Wallet,
		ElectionID: req.ElectionID,
		Status:     req.Status,
		IsVerified: req.IsVerified,
		EmittedAt:  now,
	}
}

// Publisher fans lifecycle notifications out to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}

// ChannelPublisher delivers notifications over a bounded channel. When the
// consumer falls behind the channel fills and further notifications are
// dropped, preserving fire-and-forget semantics.
type ChannelPublisher struct {
	ch      chan Notification
	metrics *metrics.Metrics
}

// NewChannelPublisher creates a publisher with the given buffer size.
func NewChannelPublisher(size int, m *metrics.Metrics) *ChannelPublisher {
	if size < 1 {
		size = 64
	}
	return &ChannelPublisher{ch: make(chan Notification, size), metrics: m}
}

func (p *ChannelPublisher) Publish(_ context.Context, n Notification) {
	select {
	case p.ch <- n:
	default:
		p.metrics.IncrementNotificationsDropped()
	}
}

// C exposes the consumer side of the channel.
func (p *ChannelPublisher) C() <-chan Notification { return p.ch }

// Multi fans one notification out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, n Notification) {
	for _, p := range m {
		p.Publish(ctx, n)
	}
}

// Discard drops every notification. Useful as a default in tests.
type Discard struct{}

func (Discard) Publish(context.Context, Notification) {}
