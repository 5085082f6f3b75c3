package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verivote/internal/oracle/ledger"
	"verivote/internal/oracle/models"
	"verivote/internal/oracle/provider"
	"verivote/internal/oracle/store"
	id "verivote/pkg/domain"
	"verivote/pkg/requestcontext"
)

// =============================================================================
// Stats Aggregator Test Suite
// =============================================================================
// Justification: the summary is derived arithmetic over store scans; each
// field's definition (what counts as verified, which requests enter the
// average) is pinned here.

type AggregatorSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	requests   *store.InMemoryStore
	aggregator *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.requests = store.NewInMemoryStore()
	bridge := ledger.NewBridge(ledger.NewSimulatedLedger(), time.Second)
	s.aggregator = New(s.requests, provider.NewSimulated(), bridge)
}

// seed plants a request with the given shape. age positions CreatedAt
// relative to the suite's fixed now; processing charges processingMs of
// pipeline time on terminal requests.
func (s *AggregatorSuite) seed(n int, status models.Status, verified bool, age time.Duration, processingMs int64, reason string) {
	subject := fmt.Sprintf("317401234567%04d", n)
	wallet := id.WalletAddress(fmt.Sprintf("0x%040d", n))
	req := models.VerificationRequest{
		ID:          id.NewRequestID(subject, wallet, s.now.UnixNano()+int64(n)),
		SubjectHash: id.HashSubjectID(subject),
		Wallet:      wallet,
		Status:      status,
		CreatedAt:   s.now.Add(-age),
	}
	if status.IsTerminal() {
		started := req.CreatedAt.Add(time.Second)
		completed := started.Add(time.Duration(processingMs) * time.Millisecond)
		req.ProcessingStartedAt = &started
		req.CompletedAt = &completed
	}
	if status == models.StatusCompleted {
		req.IsVerified = &verified
	}
	if status == models.StatusFailed {
		req.FailureReason = reason
	}
	s.Require().NoError(s.requests.Create(s.ctx, req))
}

func (s *AggregatorSuite) TestStats() {
	s.seed(1, models.StatusCompleted, true, 10*time.Minute, 100, "")
	s.seed(2, models.StatusCompleted, true, 20*time.Minute, 200, "")
	s.seed(3, models.StatusCompleted, false, 30*time.Minute, 300, "")
	s.seed(4, models.StatusFailed, false, 2*time.Hour, 400, "invalid format")
	s.seed(5, models.StatusFailed, false, 30*time.Hour, 500, "invalid format")
	s.seed(6, models.StatusVerifying, false, time.Minute, 0, "")

	summary, err := s.aggregator.Stats(s.ctx)
	s.Require().NoError(err)

	s.Equal(6, summary.Total)
	s.Equal(1, summary.Active)
	s.Equal(3, summary.Completed)
	s.Equal(2, summary.Failed)
	s.Equal(2, summary.Verified)
	s.InDelta(2.0/3.0, summary.SuccessRate, 1e-9)
	s.InDelta(300.0, summary.AvgProcessingMs, 1e-9) // mean of 100..500
	s.Equal(4, summary.VolumeLastHour)              // three completed + one active
	s.Equal(5, summary.VolumeLastDay)               // all but the 30h-old failure
	s.Equal(2, summary.FailureReasons["invalid format"])
}

func (s *AggregatorSuite) TestStatsEmptyStore() {
	summary, err := s.aggregator.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(summary.Total)
	s.Zero(summary.SuccessRate)
	s.Zero(summary.AvgProcessingMs)
}

func (s *AggregatorSuite) TestHealthReport() {
	health := s.aggregator.HealthReport(s.ctx)
	s.Equal("ok", health.Status)
	s.Equal("ok", health.Checks["store"])
	s.Equal("ok", health.Checks["provider"])
	s.Equal("ok", health.Checks["ledger"])
	s.False(health.LedgerDegraded)
}

func (s *AggregatorSuite) TestHealthReportLedgerDegraded() {
	bridge := ledger.NewBridge(failingLedger{}, 10*time.Millisecond)
	aggregator := New(s.requests, provider.NewSimulated(), bridge)

	for i := 0; i < 5; i++ {
		bridge.SubmitRequest(s.ctx, id.SubjectHash("h"), "x")
	}

	health := aggregator.HealthReport(s.ctx)
	s.Equal("degraded", health.Status)
	s.True(health.LedgerDegraded)
	s.Equal("degraded", health.Checks["ledger"])
}

type failingLedger struct{}

func (failingLedger) SubmitRequest(context.Context, id.SubjectHash, string) (ledger.Receipt, error) {
	return ledger.Receipt{}, context.DeadlineExceeded
}

func (failingLedger) CompleteOnChain(context.Context, id.RequestID, bool) (ledger.Receipt, error) {
	return ledger.Receipt{}, context.DeadlineExceeded
}
