// Package service is the oracle facade: the contract the transport layer
// consumes. Guard checks run synchronously against the store before any
// pipeline work is scheduled; rejected submissions never enter the queue.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"verivote/internal/oracle/ledger"
	"verivote/internal/oracle/metrics"
	"verivote/internal/oracle/models"
	"verivote/internal/oracle/notify"
	"verivote/internal/oracle/pipeline"
	"verivote/internal/oracle/ratewindow"
	"verivote/internal/oracle/stats"
	"verivote/internal/oracle/store"
	id "verivote/pkg/domain"
	dErrors "verivote/pkg/domain-errors"
	"verivote/pkg/platform/sentinel"
	"verivote/pkg/requestcontext"
)

// Enqueuer schedules pipeline work. Satisfied by *queue.Queue.
type Enqueuer interface {
	Enqueue(task pipeline.Task) error
}

// Oracle exposes submit, query, override, external-signal, and health
// operations over the verification store and pipeline.
type Oracle struct {
	requests   store.Store
	queue      Enqueuer
	window     ratewindow.Window
	bridge     *ledger.Bridge
	aggregator *stats.Aggregator
	publisher  notify.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics

	rateMax  int
	estimate time.Duration
}

// Option configures the Oracle.
type Option func(*Oracle)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Oracle) { o.metrics = m }
}

func WithPublisher(pub notify.Publisher) Option {
	return func(o *Oracle) { o.publisher = pub }
}

// WithRateLimit overrides the default of 5 submissions per window.
func WithRateLimit(max int) Option {
	return func(o *Oracle) {
		if max > 0 {
			o.rateMax = max
		}
	}
}

// WithCompletionEstimate sets the completion hint returned from Submit.
func WithCompletionEstimate(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.estimate = d
		}
	}
}

// New wires the facade. All four dependencies are required.
func New(requests store.Store, q Enqueuer, window ratewindow.Window, aggregator *stats.Aggregator, bridge *ledger.Bridge, opts ...Option) (*Oracle, error) {
	if requests == nil {
		return nil, errors.New("request store is required")
	}
	if q == nil {
		return nil, errors.New("queue is required")
	}
	if window == nil {
		return nil, errors.New("rate window is required")
	}
	if aggregator == nil {
		return nil, errors.New("stats aggregator is required")
	}
	if bridge == nil {
		return nil, errors.New("ledger bridge is required")
	}

	o := &Oracle{
		requests:   requests,
		queue:      q,
		window:     window,
		aggregator: aggregator,
		bridge:     bridge,
		publisher:  notify.Discard{},
		rateMax:    5,
		estimate:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SubmitInput carries one verification submission.
type SubmitInput struct {
	SubjectID  string
	Name       string
	Wallet     string
	ElectionID string
	Metadata   map[string]string
}

// SubmitResult is the synchronous acknowledgment. The eventual outcome is
// only observable by polling GetStatus.
type SubmitResult struct {
	RequestID           id.RequestID `json:"request_id"`
	Status              string       `json:"status"`
	EstimatedCompletion time.Time    `json:"estimated_completion"`
}

// Submit runs the guards, creates the request, and schedules the pipeline.
func (o *Oracle) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if in.SubjectID == "" {
		return SubmitResult{}, dErrors.New(dErrors.CodeBadRequest, "subject identifier is required")
	}
	if in.Name == "" {
		return SubmitResult{}, dErrors.New(dErrors.CodeBadRequest, "subject name is required")
	}
	wallet, err := id.ParseWalletAddress(in.Wallet)
	if err != nil {
		return SubmitResult{}, err
	}
	electionID, err := id.ParseElectionID(in.ElectionID)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := o.runGuards(ctx, in.SubjectID, wallet, electionID); err != nil {
		return SubmitResult{}, err
	}

	now := requestcontext.Now(ctx)
	req := models.VerificationRequest{
		ID:          id.NewRequestID(in.SubjectID, wallet, now.UnixNano()),
		SubjectHash: id.HashSubjectID(in.SubjectID),
		SubjectName: in.Name,
		Wallet:      wallet,
		ElectionID:  electionID,
		Status:      models.StatusPending,
		CreatedAt:   now,
		Metadata:    o.provenance(ctx, in.Metadata),
	}

	if err := o.requests.Create(ctx, req); err != nil {
		return SubmitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification request")
	}
	if err := o.window.Record(ctx, wallet); err != nil && o.logger != nil {
		// The request store remains the fallback view; losing one window
		// record only loosens the distributed limit by one.
		o.logger.Warn("rate window record failed", slog.Any("error", err))
	}

	if err := o.queue.Enqueue(pipeline.Task{RequestID: req.ID, SubjectID: in.SubjectID, Name: in.Name}); err != nil {
		if _, terr := o.requests.UpdateStatus(ctx, req.ID, models.Transition{
			To:            models.StatusFailed,
			FailureReason: "processing error: scheduler saturated",
		}); terr != nil && o.logger != nil {
			o.logger.Error("failed to park saturated submission", slog.Any("error", terr))
		}
		return SubmitResult{}, dErrors.New(dErrors.CodeUnavailable, "verification scheduler is saturated")
	}

	o.anchorSubmission(ctx, req)
	o.metrics.IncrementSubmitted()
	o.publisher.Publish(ctx, notify.NewNotification(notify.KindRequestCreated, req, now))

	return SubmitResult{
		RequestID:           req.ID,
		Status:              models.StatusPending.String(),
		EstimatedCompletion: now.Add(o.estimate),
	}, nil
}

// anchorSubmission registers the pending request on chain, best-effort and
// off the caller's path. The receipt is recorded only while the request is
// still active; a registration receipt arriving after completion must not
// overwrite the completion receipt.
func (o *Oracle) anchorSubmission(ctx context.Context, req models.VerificationRequest) {
	bg := context.WithoutCancel(ctx)
	go func() {
		receipt, ok := o.bridge.SubmitRequest(bg, req.SubjectHash, req.SubjectName)
		if !ok {
			return
		}
		if err := o.requests.SetOnChainRefIfActive(bg, req.ID, receipt.TxRef, receipt.BlockRef); err != nil && o.logger != nil {
			o.logger.Warn("record submission tx ref",
				slog.String("request_id", req.ID.String()), slog.Any("error", err))
		}
	}()
}

// RecoverOrphaned fails every request still in an active status. Run once at
// startup: the raw subject identifier lives only in in-flight pipeline tasks,
// never in the store, so work lost to a crash or restart cannot be
// re-enqueued. Failing the orphans frees their (wallet, election) pairs for
// resubmission instead of leaving them rejected by the duplicate guard
// forever. Returns the number of requests failed.
func (o *Oracle) RecoverOrphaned(ctx context.Context) (int, error) {
	all, err := o.requests.All(ctx)
	if err != nil {
		return 0, o.translate(err)
	}

	recovered := 0
	for _, req := range all {
		if req.Status.IsTerminal() {
			continue
		}
		updated, err := o.requests.UpdateStatus(ctx, req.ID, models.Transition{
			To:            models.StatusFailed,
			FailureReason: "processing error: interrupted by restart",
		})
		if err != nil {
			// A worker on another instance may have finished it meanwhile.
			if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return recovered, o.translate(err)
		}
		recovered++
		o.metrics.IncrementCompleted(updated.Status.String(), updated.Method)
		o.publisher.Publish(ctx, notify.NewNotification(notify.KindRequestCompleted, updated, requestcontext.Now(ctx)))
		if o.logger != nil {
			o.logger.Warn("failed orphaned request",
				slog.String("request_id", updated.ID.String()),
				slog.String("wallet", updated.Wallet.String()))
		}
	}
	return recovered, nil
}

// GetStatus returns the current projection of a request.
func (o *Oracle) GetStatus(ctx context.Context, requestID string) (Projection, error) {
	rid, err := id.ParseRequestID(requestID)
	if err != nil {
		return Projection{}, err
	}
	req, err := o.requests.Get(ctx, rid)
	if err != nil {
		return Projection{}, o.translate(err)
	}
	return project(req), nil
}

// HistoryFilters narrows GetHistory.
type HistoryFilters struct {
	Status     string
	ElectionID string
}

// HistoryPage is one page of a wallet's requests plus a wallet-level summary.
type HistoryPage struct {
	Items    []Projection   `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Summary  HistorySummary `json:"summary"`
}

// HistorySummary aggregates a wallet's verification history.
type HistorySummary struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Verified  int `json:"verified"`
	Failed    int `json:"failed"`
}

// GetHistory lists a wallet's requests, newest first.
func (o *Oracle) GetHistory(ctx context.Context, walletAddr string, f HistoryFilters, page, pageSize int) (HistoryPage, error) {
	wallet, err := id.ParseWalletAddress(walletAddr)
	if err != nil {
		return HistoryPage{}, err
	}
	electionID, err := id.ParseElectionID(f.ElectionID)
	if err != nil {
		return HistoryPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := store.Filters{Wallet: wallet, Status: models.Status(f.Status), ElectionID: electionID}
	items, total, err := o.requests.Query(ctx, filters, page, pageSize)
	if err != nil {
		return HistoryPage{}, o.translate(err)
	}

	// Summary covers the wallet's whole history, not just this page, so it
	// needs the unfiltered count; the filtered total can be arbitrarily
	// smaller than the wallet's real history.
	_, walletTotal, err := o.requests.Query(ctx, store.Filters{Wallet: wallet}, 1, 1)
	if err != nil {
		return HistoryPage{}, o.translate(err)
	}
	summary := HistorySummary{}
	if walletTotal > 0 {
		all, _, err := o.requests.Query(ctx, store.Filters{Wallet: wallet}, 1, walletTotal)
		if err != nil {
			return HistoryPage{}, o.translate(err)
		}
		for _, req := range all {
			switch req.Status {
			case models.StatusCompleted:
				summary.Completed++
				if req.IsVerified != nil && *req.IsVerified {
					summary.Verified++
				}
			case models.StatusFailed:
				summary.Failed++
			default:
				summary.Active++
			}
		}
	}

	out := HistoryPage{Total: total, Page: page, PageSize: pageSize, Summary: summary}
	for _, req := range items {
		out.Items = append(out.Items, project(req))
	}
	return out, nil
}

// ManualOverride force-completes a request with an operator-supplied
// verdict. An already-completed request is never re-opened.
func (o *Oracle) ManualOverride(ctx context.Context, requestID string, isVerified bool, reason, operatorID string) error {
	if operatorID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "operator id is required")
	}
	rid, err := id.ParseRequestID(requestID)
	if err != nil {
		return err
	}

	req, err := o.requests.UpdateStatus(ctx, rid, models.Transition{
		To:            models.StatusCompleted,
		IsVerified:    &isVerified,
		FailureReason: reason,
		Method:        models.MethodManualOverride,
		Metadata:      map[string]string{"override_operator": operatorID},
		Force:         true,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeInvalidState, "request already completed")
		}
		return o.translate(err)
	}

	o.finishForced(ctx, req)
	return nil
}

// HandleExternalSignal completes a request from an external verifier
// callback. It applies the same terminal-state idempotency as the pipeline:
// a request that already reached Completed or Failed is not changed.
func (o *Oracle) HandleExternalSignal(ctx context.Context, requestID string, isVerified bool, metadata map[string]string) error {
	rid, err := id.ParseRequestID(requestID)
	if err != nil {
		return err
	}

	current, err := o.requests.Get(ctx, rid)
	if err != nil {
		return o.translate(err)
	}
	if current.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "request already terminal (%s)", current.Status)
	}

	req, err := o.requests.UpdateStatus(ctx, rid, models.Transition{
		To:         models.StatusCompleted,
		IsVerified: &isVerified,
		Method:     models.MethodExternalCallback,
		Metadata:   metadata,
		Force:      true,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeInvalidState, "request already completed")
		}
		return o.translate(err)
	}

	o.finishForced(ctx, req)
	return nil
}

// finishForced handles the shared tail of override and external completion:
// metrics, notification, best-effort anchoring.
func (o *Oracle) finishForced(ctx context.Context, req models.VerificationRequest) {
	o.metrics.IncrementCompleted(req.Status.String(), req.Method)
	o.publisher.Publish(ctx, notify.NewNotification(notify.KindRequestCompleted, req, requestcontext.Now(ctx)))

	bg := context.WithoutCancel(ctx)
	verified := req.IsVerified != nil && *req.IsVerified
	go func() {
		receipt, ok := o.bridge.CompleteOnChain(bg, req.ID, verified)
		if !ok {
			return
		}
		if err := o.requests.SetOnChainRef(bg, req.ID, receipt.TxRef, receipt.BlockRef); err != nil && o.logger != nil {
			o.logger.Warn("record completion tx ref",
				slog.String("request_id", req.ID.String()), slog.Any("error", err))
		}
	}()
}

// GetStats returns the aggregate summary derived from the store.
func (o *Oracle) GetStats(ctx context.Context) (stats.Summary, error) {
	summary, err := o.aggregator.Stats(ctx)
	if err != nil {
		return stats.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive stats")
	}
	return summary, nil
}

// GetHealth returns the service health report.
func (o *Oracle) GetHealth(ctx context.Context) stats.Health {
	return o.aggregator.HealthReport(ctx)
}

func (o *Oracle) provenance(ctx context.Context, extra map[string]string) map[string]string {
	meta := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		meta[k] = v
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		meta["client_ip"] = ip
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		meta["user_agent"] = ua
	}
	return meta
}

func (o *Oracle) translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "request state does not permit this operation")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.New(dErrors.CodeUnavailable, "verification store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification store error")
	}
}
