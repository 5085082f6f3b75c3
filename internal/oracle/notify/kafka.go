package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"verivote/internal/oracle/metrics"
)

// KafkaPublisher produces lifecycle notifications to a Kafka topic, keyed by
// request ID so one request's notifications stay ordered within a partition.
// Produces are async; a failed produce is logged and counted, nothing more.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// KafkaOption configures the KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) { p.logger = logger }
}

func WithKafkaMetrics(m *metrics.Metrics) KafkaOption {
	return func(p *KafkaPublisher) { p.metrics = m }
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	p := &KafkaPublisher{client: client, topic: topic}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.ensureTopic(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *KafkaPublisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resps, err := adm.CreateTopics(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, resp := range resps.Sorted() {
		// An already-existing topic is fine; anything else is logged but
		// not fatal, the broker may restrict topic creation to operators.
		if resp.Err != nil && p.logger != nil {
			p.logger.Warn("kafka topic creation", slog.String("topic", resp.Topic), slog.Any("error", resp.Err))
		}
	}
	return nil
}

type kafkaPayload struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	RequestID  string `json:"request_id"`
	Wallet     string `json:"wallet"`
	ElectionID string `json:"election_id,omitempty"`
	Status     string `json:"status"`
	IsVerified *bool  `json:"is_verified,omitempty"`
	EmittedAt  string `json:"emitted_at"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) {
	value, err := json.Marshal(kafkaPayload{
		ID:         n.ID,
		Kind:       string(n.Kind),
		RequestID:  n.RequestID.String(),
		Wallet:     n.Wallet.String(),
		ElectionID: n.ElectionID.String(),
		Status:     n.Status.String(),
		IsVerified: n.IsVerified,
		EmittedAt:  n.EmittedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		p.metrics.IncrementNotificationsDropped()
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(n.RequestID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err == nil {
			return
		}
		p.metrics.IncrementNotificationsDropped()
		if p.logger != nil {
			p.logger.Warn("kafka produce failed",
				slog.String("request_id", n.RequestID.String()),
				slog.Any("error", err))
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return err
	}
	p.client.Close()
	return nil
}
