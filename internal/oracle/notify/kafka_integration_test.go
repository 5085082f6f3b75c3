//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
	"verivote/pkg/testutil/containers"
)

// =============================================================================
// Kafka Publisher Integration Test
// =============================================================================
// Justification: topic auto-creation and key-based partitioning only behave
// against a real broker. Redpanda stands in for Kafka.

func TestKafkaPublisherRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	broker := containers.NewRedpandaContainer(t)
	defer func() { _ = broker.Container.Terminate(context.Background()) }()

	const topic = "verivote.lifecycle.test"
	pub, err := NewKafkaPublisher([]string{broker.Broker}, topic)
	require.NoError(t, err)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = pub.Close(closeCtx)
	}()

	verified := true
	req := models.VerificationRequest{
		ID:          id.RequestID("req-kafka-1"),
		SubjectHash: id.HashSubjectID("3174012345678901"),
		Wallet:      id.WalletAddress("0x00112233445566778899aabbccddeeff00112233"),
		Status:      models.StatusCompleted,
		IsVerified:  &verified,
	}
	pub.Publish(context.Background(), NewNotification(KindRequestCompleted, req, time.Now()))

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, pub.client.Flush(flushCtx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelFetch()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "req-kafka-1", string(records[0].Key))

	var payload struct {
		Kind      string `json:"kind"`
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	require.Equal(t, "request_completed", payload.Kind)
	require.Equal(t, "req-kafka-1", payload.RequestID)
	require.Equal(t, "completed", payload.Status)
}
