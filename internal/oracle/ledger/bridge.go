package ledger

import (
	"context"
	"log/slog"
	"time"

	"verivote/internal/oracle/metrics"
	id "verivote/pkg/domain"
	"verivote/pkg/platform/circuit"
)

// Bridge wraps a Ledger with the oracle's anchoring policy: an independent
// short timeout per call, a circuit breaker feeding health reporting, and
// swallow-and-log error handling. The pipeline calls the bridge and moves
// on; it never learns more than "the receipt is absent".
type Bridge struct {
	ledger  Ledger
	timeout time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Bridge.
type Option func(*Bridge)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithBreaker overrides the default breaker (5 consecutive failures open,
// 2 successes close).
func WithBreaker(br *circuit.Breaker) Option {
	return func(b *Bridge) { b.breaker = br }
}

// NewBridge wraps the given ledger client. timeout bounds each call
// independently of the provider budget so a degraded chain gateway cannot
// starve the worker pool.
func NewBridge(ledger Ledger, timeout time.Duration, opts ...Option) *Bridge {
	b := &Bridge{
		ledger:  ledger,
		timeout: timeout,
		breaker: circuit.New("ledger", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubmitRequest registers a pending verification on chain, best-effort.
func (b *Bridge) SubmitRequest(ctx context.Context, subjectHash id.SubjectHash, name string) (Receipt, bool) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	receipt, err := b.ledger.SubmitRequest(ctx, subjectHash, name)
	b.record("submit", err)
	if err != nil {
		b.log(ctx, "ledger submit failed", err)
		return Receipt{}, false
	}
	return receipt, true
}

// CompleteOnChain anchors a terminal verdict, best-effort. A false return
// means the receipt is absent; the caller's terminal state stands either way.
func (b *Bridge) CompleteOnChain(ctx context.Context, requestID id.RequestID, verified bool) (Receipt, bool) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	receipt, err := b.ledger.CompleteOnChain(ctx, requestID, verified)
	b.record("complete", err)
	if err != nil {
		b.log(ctx, "ledger completion failed", err, slog.String("request_id", requestID.String()))
		return Receipt{}, false
	}
	return receipt, true
}

// Degraded reports whether the bridge's recent calls have been failing. This
// is the only place ledger degradation is visible; individual requests still
// complete while it is true.
func (b *Bridge) Degraded() bool {
	return b.breaker.IsOpen()
}

func (b *Bridge) record(operation string, err error) {
	b.metrics.IncrementLedgerCall(operation, err)
	if err != nil {
		_, change := b.breaker.RecordFailure()
		if change.Opened && b.logger != nil {
			b.logger.Warn("ledger bridge degraded", slog.String("breaker", b.breaker.Name()))
		}
		return
	}
	_, change := b.breaker.RecordSuccess()
	if change.Closed && b.logger != nil {
		b.logger.Info("ledger bridge recovered", slog.String("breaker", b.breaker.Name()))
	}
}

func (b *Bridge) log(ctx context.Context, msg string, err error, attrs ...any) {
	if b.logger == nil {
		return
	}
	attrs = append(attrs, slog.Any("error", err))
	b.logger.WarnContext(ctx, msg, attrs...)
}
