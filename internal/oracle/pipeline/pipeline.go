// Package pipeline drives one verification request from pickup to a terminal
// state.
//
// Each status change is an individual store transition so concurrent readers
// observe every step. Once Processing has begun the pipeline always runs to a
// terminal state; there is no mid-flight cancellation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verivote/internal/oracle/ledger"
	"verivote/internal/oracle/metrics"
	"verivote/internal/oracle/models"
	"verivote/internal/oracle/notify"
	"verivote/internal/oracle/provider"
	"verivote/internal/oracle/store"
	id "verivote/pkg/domain"
	"verivote/pkg/platform/sentinel"
)

// Task is one unit of pipeline work. It carries the raw subject identifier
// because the provider is called with the raw value; the store only ever
// sees the hash.
type Task struct {
	RequestID id.RequestID
	SubjectID string
	Name      string
}

// Pipeline executes verification tasks.
type Pipeline struct {
	requests        store.Store
	authority       provider.Provider
	bridge          *ledger.Bridge
	publisher       notify.Publisher
	providerTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

// Option configures the Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithPublisher(pub notify.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// New creates a pipeline. providerTimeout bounds the authority call; the
// ledger bridge carries its own, shorter budget.
func New(requests store.Store, authority provider.Provider, bridge *ledger.Bridge, providerTimeout time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		requests:        requests,
		authority:       authority,
		bridge:          bridge,
		providerTimeout: providerTimeout,
		publisher:       notify.Discard{},
		tracer:          otel.Tracer("verivote/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one request to a terminal state. It never returns an error to
// the scheduler: every failure mode lands on the request itself.
func (p *Pipeline) Process(ctx context.Context, task Task) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("request_id", task.RequestID.String())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, task.RequestID, fmt.Sprintf("processing error: %v", r))
		}
	}()

	started := time.Now()

	if _, err := p.transition(ctx, task.RequestID, models.Transition{To: models.StatusProcessing}); err != nil {
		return
	}
	if _, err := p.transition(ctx, task.RequestID, models.Transition{To: models.StatusValidating}); err != nil {
		return
	}

	// Fail fast on format: no external call is made for a malformed
	// identifier.
	if err := models.ValidateNIK(task.SubjectID); err != nil {
		p.fail(ctx, task.RequestID, models.InvalidFormatReason)
		p.metrics.ObserveProcessing(time.Since(started))
		return
	}

	if _, err := p.transition(ctx, task.RequestID, models.Transition{To: models.StatusVerifying}); err != nil {
		return
	}

	result, err := p.verify(ctx, task)
	if err != nil {
		p.fail(ctx, task.RequestID, err.Error())
		p.metrics.ObserveProcessing(time.Since(started))
		return
	}

	method := result.Method
	if method == "" {
		method = models.MethodProvider
	}
	req, err := p.transition(ctx, task.RequestID, models.Transition{
		To:            models.StatusCompleted,
		IsVerified:    &result.Valid,
		Confidence:    &result.Confidence,
		FailureReason: result.Reason,
		Method:        method,
	})
	if err != nil {
		return
	}

	p.anchor(ctx, req)
	p.finish(ctx, req)
	p.metrics.ObserveProcessing(time.Since(started))
}

func (p *Pipeline) verify(ctx context.Context, task Task) (*provider.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "provider.verify")
	defer span.End()

	start := time.Now()
	result, err := p.authority.Verify(ctx, task.SubjectID, task.Name)
	p.metrics.ObserveProvider(time.Since(start))
	return result, err
}

// anchor attempts the best-effort on-chain completion. The terminal status
// is already committed; a missing receipt is the only consequence of failure.
func (p *Pipeline) anchor(ctx context.Context, req models.VerificationRequest) {
	ctx, span := p.tracer.Start(ctx, "ledger.complete")
	defer span.End()

	verified := req.IsVerified != nil && *req.IsVerified
	receipt, ok := p.bridge.CompleteOnChain(ctx, req.ID, verified)
	if !ok {
		return
	}
	if err := p.requests.SetOnChainRef(ctx, req.ID, receipt.TxRef, receipt.BlockRef); err != nil && p.logger != nil {
		p.logger.Warn("record onchain ref",
			slog.String("request_id", req.ID.String()), slog.Any("error", err))
	}
}

// transition applies one status change. A sentinel.ErrInvalidState means the
// request reached a terminal state through another path (external signal or
// manual override) while this run was in flight; the pipeline stands down.
func (p *Pipeline) transition(ctx context.Context, requestID id.RequestID, tr models.Transition) (models.VerificationRequest, error) {
	req, err := p.requests.UpdateStatus(ctx, requestID, tr)
	if err != nil {
		if p.logger != nil && !errors.Is(err, sentinel.ErrInvalidState) {
			p.logger.Error("pipeline transition failed",
				slog.String("request_id", requestID.String()),
				slog.String("to", tr.To.String()),
				slog.Any("error", err))
		}
		return models.VerificationRequest{}, err
	}
	return req, nil
}

func (p *Pipeline) fail(ctx context.Context, requestID id.RequestID, reason string) {
	req, err := p.transition(ctx, requestID, models.Transition{
		To:            models.StatusFailed,
		FailureReason: reason,
	})
	if err != nil {
		return
	}
	p.finish(ctx, req)
}

func (p *Pipeline) finish(ctx context.Context, req models.VerificationRequest) {
	p.metrics.IncrementCompleted(req.Status.String(), req.Method)
	p.publisher.Publish(ctx, notify.NewNotification(notify.KindRequestCompleted, req, time.Now()))
}
