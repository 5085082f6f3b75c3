package service

import (
	"context"
	"errors"
	"fmt"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
	dErrors "verivote/pkg/domain-errors"
	"verivote/pkg/platform/sentinel"
)

// runGuards enforces the three submission preconditions, in order: no
// duplicate in-flight request, wallet under the rate limit, subject not
// already verified for the election. The first guard to trip rejects the
// submission; later guards are not evaluated.
func (o *Oracle) runGuards(ctx context.Context, subjectID string, wallet id.WalletAddress, electionID id.ElectionID) error {
	if err := o.guardDuplicate(ctx, wallet, electionID); err != nil {
		return err
	}
	if err := o.guardRate(ctx, wallet); err != nil {
		return err
	}
	return o.guardAlreadyVerified(ctx, subjectID, electionID)
}

// guardDuplicate rejects a submission while the wallet already has an active
// request for the same election. The existing request's ID is surfaced so the
// caller can poll it instead of resubmitting.
func (o *Oracle) guardDuplicate(ctx context.Context, wallet id.WalletAddress, electionID id.ElectionID) error {
	existing, err := o.requests.FindActive(ctx, wallet, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "duplicate guard check failed")
	}
	o.metrics.IncrementGuardRejection("duplicate")
	return dErrors.New(dErrors.CodeConflict, fmt.Sprintf(
		"an active verification already exists for this wallet (request %s, status %s)",
		existing.ID, existing.Status))
}

// guardRate rejects a submission once the wallet has exhausted its window.
// Window read failures reject closed: if the limiter cannot be consulted,
// the submission is refused rather than admitted unbounded.
func (o *Oracle) guardRate(ctx context.Context, wallet id.WalletAddress) error {
	count, err := o.window.Count(ctx, wallet)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "rate guard check failed")
	}
	if count >= o.rateMax {
		o.metrics.IncrementGuardRejection("rate")
		return dErrors.Newf(dErrors.CodeRateLimited,
			"submission limit reached (%d per window); retry later", o.rateMax)
	}
	return nil
}

// guardAlreadyVerified rejects a subject that already holds a verified
// verdict for this election. With no election scope the guard is skipped:
// unscoped verifications are allowed to repeat.
func (o *Oracle) guardAlreadyVerified(ctx context.Context, subjectID string, electionID id.ElectionID) error {
	if electionID.IsNil() {
		return nil
	}
	prior, err := o.requests.FindVerified(ctx, id.HashSubjectID(subjectID), electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "prior verification guard check failed")
	}
	if prior.Status == models.StatusCompleted {
		o.metrics.IncrementGuardRejection("already_verified")
		return dErrors.New(dErrors.CodeAlreadyVerified,
			"this identity is already verified for the requested election")
	}
	return nil
}
