// Package models defines the verification request entity and its state machine.
//
// The status transition table lives here, centrally, so legality is enforced
// in one place (the stores call CanTransition) instead of being scattered
// across call sites.
package models

import (
	"time"

	id "verivote/pkg/domain"
)

// Status is the lifecycle state of a verification request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusValidating Status = "validating"
	StatusVerifying  Status = "verifying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further automatic transitions occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the request still has pipeline work ahead of it.
func (s Status) IsActive() bool { return !s.IsTerminal() }

func (s Status) String() string { return string(s) }

// VerificationMethod records how a terminal verdict was reached.
const (
	MethodProvider         = "provider"
	MethodManualOverride   = "manual_override"
	MethodExternalCallback = "external_callback"
)

// transitions is the authoritative automatic state machine. Forced
// transitions (manual override, external callback) are additionally allowed
// from any non-completed status; see Transition.Force.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusValidating, StatusFailed},
	StatusValidating: {StatusVerifying, StatusFailed},
	StatusVerifying:  {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransition reports whether the pipeline may move a request from one
// status to another. Terminal states have no outgoing automatic transitions.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition describes one status change to be applied atomically by a store.
type Transition struct {
	To            Status
	IsVerified    *bool
	Confidence    *float64
	FailureReason string
	Method        string

	// Metadata entries are merged into the request's provenance metadata,
	// e.g. the operator behind a manual override.
	Metadata map[string]string

	// Force marks a manual override or external callback. Forced
	// transitions may complete a request from any status except an
	// already-completed one; they never regress a completed verdict.
	Force bool
}

// Allowed checks the transition against the current status.
func (t Transition) Allowed(from Status) bool {
	if t.Force {
		return t.To == StatusCompleted && from != StatusCompleted
	}
	return CanTransition(from, t.To)
}

// VerificationRequest is the sole entity of the oracle. It is created once,
// mutated only through store transitions, and never deleted.
type VerificationRequest struct {
	ID          id.RequestID
	SubjectHash id.SubjectHash
	SubjectName string
	Wallet      id.WalletAddress
	ElectionID  id.ElectionID

	Status        Status
	IsVerified    *bool
	Confidence    *float64
	FailureReason string
	Method        string

	CreatedAt           time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time

	// Best-effort on-chain anchoring. Absence never blocks a terminal state.
	OnChainTxRef    string
	OnChainBlockRef string

	// Free-form provenance (source, client IP, referer). Audit only.
	Metadata map[string]string
}

// Apply returns a copy of the request with the transition applied and
// timestamps stamped. Callers must have checked Allowed first; Apply does
// not re-validate.
func (r VerificationRequest) Apply(t Transition, now time.Time) VerificationRequest {
	r.Status = t.To
	switch t.To {
	case StatusProcessing:
		if r.ProcessingStartedAt == nil {
			ts := now
			r.ProcessingStartedAt = &ts
		}
	case StatusCompleted, StatusFailed:
		ts := now
		// Forced completions can land before the pipeline ever picked the
		// request up; stamp the processing start so completedAt >=
		// processingStartedAt >= createdAt holds on every terminal record.
		if r.ProcessingStartedAt == nil {
			r.ProcessingStartedAt = &ts
		}
		r.CompletedAt = &ts
	}
	if t.IsVerified != nil {
		r.IsVerified = t.IsVerified
	}
	if t.Confidence != nil {
		r.Confidence = t.Confidence
	}
	if t.FailureReason != "" {
		r.FailureReason = t.FailureReason
	}
	if t.Method != "" {
		r.Method = t.Method
	}
	if len(t.Metadata) > 0 {
		merged := make(map[string]string, len(r.Metadata)+len(t.Metadata))
		for k, v := range r.Metadata {
			merged[k] = v
		}
		for k, v := range t.Metadata {
			merged[k] = v
		}
		r.Metadata = merged
	}
	return r
}

// ProcessingTimeMs derives the processing duration from the two timestamps
// it is computed from. Zero until the request is terminal.
func (r VerificationRequest) ProcessingTimeMs() int64 {
	if r.ProcessingStartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.ProcessingStartedAt).Milliseconds()
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (r VerificationRequest) Clone() VerificationRequest {
	out := r
	if r.IsVerified != nil {
		v := *r.IsVerified
		out.IsVerified = &v
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	if r.ProcessingStartedAt != nil {
		ts := *r.ProcessingStartedAt
		out.ProcessingStartedAt = &ts
	}
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		out.CompletedAt = &ts
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
