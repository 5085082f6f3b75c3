// Package store persists verification requests.
//
// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory or PostgreSQL persistence without rewiring business
// code. UpdateStatus is the only mutation path for lifecycle state; it
// enforces the transition table atomically so racing workers can never both
// win a transition on the same request.
package store

import (
	"context"
	"time"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
)

// Filters narrows a Query. Zero values mean "no filter".
type Filters struct {
	Wallet     id.WalletAddress
	Status     models.Status
	ElectionID id.ElectionID
}

// Store holds all verification requests. Records are append/update-only;
// failed and completed requests are retained for audit and history queries.
type Store interface {
	// Create fails with sentinel.ErrConflict if the id already exists.
	// Given the id derivation scheme that indicates a programming error.
	Create(ctx context.Context, req models.VerificationRequest) error

	// Get returns sentinel.ErrNotFound for unknown ids.
	Get(ctx context.Context, requestID id.RequestID) (models.VerificationRequest, error)

	// UpdateStatus applies one transition atomically. It returns
	// sentinel.ErrInvalidState if the transition is not reachable from the
	// current status, and the updated record on success.
	UpdateStatus(ctx context.Context, requestID id.RequestID, tr models.Transition) (models.VerificationRequest, error)

	// SetOnChainRef records best-effort anchoring output. It never touches
	// lifecycle state.
	SetOnChainRef(ctx context.Context, requestID id.RequestID, txRef, blockRef string) error

	// SetOnChainRefIfActive records anchoring output only while the request
	// is still active. A registration receipt that lands after the request
	// reached a terminal state is dropped so it can never overwrite the
	// completion receipt; the skip is silent.
	SetOnChainRefIfActive(ctx context.Context, requestID id.RequestID, txRef, blockRef string) error

	// FindActive returns the single in-flight request for the wallet and
	// election, or sentinel.ErrNotFound.
	FindActive(ctx context.Context, wallet id.WalletAddress, electionID id.ElectionID) (models.VerificationRequest, error)

	// FindRecent lists requests created by the wallet inside the trailing
	// window, used by the rate guard.
	FindRecent(ctx context.Context, wallet id.WalletAddress, window time.Duration) ([]models.VerificationRequest, error)

	// FindVerified returns a completed, positively verified request for the
	// subject and election, or sentinel.ErrNotFound.
	FindVerified(ctx context.Context, subjectHash id.SubjectHash, electionID id.ElectionID) (models.VerificationRequest, error)

	// Query returns one page sorted newest-first by creation time, plus the
	// total match count.
	Query(ctx context.Context, f Filters, page, pageSize int) ([]models.VerificationRequest, int, error)

	// All snapshots every record, for stats derivation.
	All(ctx context.Context) ([]models.VerificationRequest, error)
}
