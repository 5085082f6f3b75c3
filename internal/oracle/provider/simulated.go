package provider

import (
	"context"
	"crypto/sha256"
	"strings"

	"verivote/internal/oracle/models"
)

// Simulated is a deterministic in-process authority for development and
// tests. The designated test identifiers get fixed verdicts; everything else
// is answered from a stable hash of the identifier so repeated submissions
// agree with each other.
type Simulated struct{}

func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Verify(_ context.Context, subjectID, name string) (*Result, error) {
	switch subjectID {
	case models.TestNIKAlwaysValid:
		return &Result{Valid: true, Confidence: 0.99, Reason: "identity matched", Method: "simulated"}, nil
	case models.TestNIKAlwaysInvalid:
		return &Result{Valid: false, Confidence: 0.97, Reason: "identity not found in registry", Method: "simulated"}, nil
	}

	sum := sha256.Sum256([]byte(subjectID + "|" + strings.ToLower(strings.TrimSpace(name))))
	valid := sum[0]%4 != 0 // three quarters of synthetic subjects verify
	result := &Result{
		Valid:      valid,
		Confidence: 0.80 + float64(sum[1]%20)/100,
		Method:     "simulated",
	}
	if valid {
		result.Reason = "identity matched"
	} else {
		result.Reason = "name does not match registry record"
	}
	return result, nil
}

func (s *Simulated) Health(context.Context) error { return nil }
