package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RegistryClient talks to the civil registry's verification endpoint over
// HTTP. The registry answers with a yes/no verdict and a confidence score.
type RegistryClient struct {
	baseURL string
	client  *http.Client
}

// NewRegistryClient builds a client for the registry at baseURL. The
// transport-level timeout is a last line of defense; callers are still
// expected to pass deadline-bounded contexts.
func NewRegistryClient(baseURL string, timeout time.Duration) *RegistryClient {
	return &RegistryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type registryVerifyRequest struct {
	NIK  string `json:"nik"`
	Name string `json:"name"`
}

type registryVerifyResponse struct {
	IsValid         bool    `json:"is_valid"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reason          string  `json:"reason"`
}

func (c *RegistryClient) Verify(ctx context.Context, subjectID, name string) (*Result, error) {
	body, err := json.Marshal(registryVerifyRequest{NIK: subjectID, Name: name})
	if err != nil {
		return nil, NewError(ErrorInternal, "encode verify request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorInternal, "build verify request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(ErrorTimeout, "registry verify timed out", err)
		}
		return nil, NewError(ErrorOutage, "registry unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The registry has no record at all. Distinct from a negative
		// verdict, which comes back 200 with is_valid=false.
		return nil, NewError(ErrorNotFound, "subject not found in registry", nil)
	case resp.StatusCode >= 500:
		return nil, NewError(ErrorOutage, fmt.Sprintf("registry returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewError(ErrorBadData, fmt.Sprintf("registry returned %d", resp.StatusCode), nil)
	}

	var payload registryVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewError(ErrorBadData, "decode registry response", err)
	}

	return &Result{
		Valid:      payload.IsValid,
		Confidence: payload.ConfidenceScore,
		Reason:     payload.Reason,
		Method:     "civil_registry",
	}, nil
}

func (c *RegistryClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry health returned %d", resp.StatusCode)
	}
	return nil
}
