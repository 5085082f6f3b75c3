// Package ledger anchors verification outcomes on the voting chain.
//
// Anchoring is strictly best-effort: the off-chain result is authoritative
// and a failed or missing on-chain write never blocks or reverses a terminal
// state. Failures are visible only through health reporting.
package ledger

import (
	"context"

	id "verivote/pkg/domain"
)

// Receipt is the ledger's acknowledgment of a submitted transaction.
type Receipt struct {
	TxRef    string
	BlockRef string
}

// Ledger is the opaque transaction submitter. The voting contract's
// semantics are out of scope; both calls are idempotent from the caller's
// perspective, and CompleteOnChain does not require a prior SubmitRequest.
type Ledger interface {
	// SubmitRequest registers a pending verification on chain.
	SubmitRequest(ctx context.Context, subjectHash id.SubjectHash, name string) (Receipt, error)

	// CompleteOnChain anchors the final verdict for a request.
	CompleteOnChain(ctx context.Context, requestID id.RequestID, verified bool) (Receipt, error)
}
