package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	id "verivote/pkg/domain"
)

// HTTPClient submits transactions through the chain gateway's JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type txResponse struct {
	TxHash   string `json:"tx_hash"`
	BlockRef string `json:"block_ref"`
}

func (c *HTTPClient) SubmitRequest(ctx context.Context, subjectHash id.SubjectHash, name string) (Receipt, error) {
	return c.post(ctx, "/v1/requests", map[string]any{
		"subject_hash": subjectHash.String(),
		"name":         name,
	})
}

func (c *HTTPClient) CompleteOnChain(ctx context.Context, requestID id.RequestID, verified bool) (Receipt, error) {
	return c.post(ctx, "/v1/completions", map[string]any{
		"request_id": requestID.String(),
		"verified":   verified,
	})
}

func (c *HTTPClient) post(ctx context.Context, path string, payload map[string]any) (Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode ledger payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit ledger tx: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return Receipt{}, fmt.Errorf("ledger gateway returned %d", resp.StatusCode)
	}

	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return Receipt{}, fmt.Errorf("decode ledger response: %w", err)
	}
	return Receipt{TxRef: tx.TxHash, BlockRef: tx.BlockRef}, nil
}
