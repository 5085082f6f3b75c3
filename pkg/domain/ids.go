// Package domain defines typed primitives shared across the oracle.
//
// These are domain primitives that enforce validity at parse time, so
// services never carry around raw strings of uncertain provenance.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	dErrors "verivote/pkg/domain-errors"
)

// RequestID identifies one verification request. It is derived
// deterministically from the submission inputs and never reused.
type RequestID string

// NewRequestID derives the request identifier from the subject identifier,
// wallet address, and the submission time in nanoseconds. The derivation is
// one-way: the raw subject identifier cannot be recovered from the ID.
func NewRequestID(subjectID string, wallet WalletAddress, submittedAtNanos int64) RequestID {
	sum := sha256.Sum256([]byte(subjectID + "|" + wallet.String() + "|" + strconv.FormatInt(submittedAtNanos, 10)))
	return RequestID(hex.EncodeToString(sum[:]))
}

// ParseRequestID validates an externally supplied request ID.
func ParseRequestID(s string) (RequestID, error) {
	if len(s) != sha256.Size*2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id must be a 64-character hex digest")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id must be hex encoded")
	}
	return RequestID(s), nil
}

func (id RequestID) String() string { return string(id) }
func (id RequestID) IsNil() bool    { return id == "" }

// SubjectHash is the one-way hash of a national identity number. Only the
// hash is ever persisted; the raw identifier lives for the duration of one
// pipeline run and no longer.
type SubjectHash string

// HashSubjectID hashes a raw national identity number for storage.
func HashSubjectID(subjectID string) SubjectHash {
	sum := sha256.Sum256([]byte(subjectID))
	return SubjectHash(hex.EncodeToString(sum[:]))
}

func (h SubjectHash) String() string { return string(h) }
func (h SubjectHash) IsNil() bool    { return h == "" }

// WalletAddress is a normalized EVM-style wallet address (lowercase 0x-hex).
type WalletAddress string

// ParseWalletAddress validates and normalizes a wallet address.
func ParseWalletAddress(s string) (WalletAddress, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must start with 0x")
	}
	body := s[2:]
	if len(body) != 40 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must be 20 bytes of hex")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must be hex encoded")
	}
	return WalletAddress(s), nil
}

func (w WalletAddress) String() string { return string(w) }
func (w WalletAddress) IsNil() bool    { return w == "" }

// ElectionID scopes a verification to one election. Empty means the
// verification is not tied to a specific election.
type ElectionID string

// ParseElectionID validates an election identifier. Empty input is valid and
// yields the zero value.
func ParseElectionID(s string) (ElectionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "election id too long")
	}
	return ElectionID(s), nil
}

func (e ElectionID) String() string { return string(e) }
func (e ElectionID) IsNil() bool    { return e == "" }
