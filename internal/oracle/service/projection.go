package service

import (
	"time"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
)

// Projection is the external view of a verification request. It exposes the
// subject only as a hash; the raw identifier is never part of any response.
type Projection struct {
	RequestID   id.RequestID     `json:"request_id"`
	SubjectHash id.SubjectHash   `json:"subject_hash"`
	SubjectName string           `json:"subject_name"`
	Wallet      id.WalletAddress `json:"wallet"`
	ElectionID  id.ElectionID    `json:"election_id,omitempty"`

	Status        string   `json:"status"`
	IsVerified    *bool    `json:"is_verified,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
	Method        string   `json:"method,omitempty"`

	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ProcessingTimeMs int64      `json:"processing_time_ms,omitempty"`

	OnChainTxRef    string `json:"onchain_tx_ref,omitempty"`
	OnChainBlockRef string `json:"onchain_block_ref,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

func project(req models.VerificationRequest) Projection {
	return Projection{
		RequestID:        req.ID,
		SubjectHash:      req.SubjectHash,
		SubjectName:      req.SubjectName,
		Wallet:           req.Wallet,
		ElectionID:       req.ElectionID,
		Status:           req.Status.String(),
		IsVerified:       req.IsVerified,
		Confidence:       req.Confidence,
		FailureReason:    req.FailureReason,
		Method:           req.Method,
		CreatedAt:        req.CreatedAt,
		CompletedAt:      req.CompletedAt,
		ProcessingTimeMs: req.ProcessingTimeMs(),
		OnChainTxRef:     req.OnChainTxRef,
		OnChainBlockRef:  req.OnChainBlockRef,
		Metadata:         req.Metadata,
	}
}
