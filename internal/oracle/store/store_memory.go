package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
	"verivote/pkg/platform/sentinel"
	"verivote/pkg/requestcontext"
)

// InMemoryStore keeps the initial implementation lightweight and testable.
// It intentionally favors clarity over performance: reads that back guards
// and stats do linear scans over a map guarded by one RWMutex.
//
// All mutation happens under the write lock, so a read issued after an
// UpdateStatus returns always observes that transition.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]models.VerificationRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]models.VerificationRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, req models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID id.RequestID) (models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if req, ok := s.requests[requestID]; ok {
		return req.Clone(), nil
	}
	return models.VerificationRequest{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, requestID id.RequestID, tr models.Transition) (models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return models.VerificationRequest{}, sentinel.ErrNotFound
	}
	if !tr.Allowed(req.Status) {
		return models.VerificationRequest{}, sentinel.ErrInvalidState
	}
	updated := req.Apply(tr, requestcontext.Now(ctx))
	s.requests[requestID] = updated
	return updated.Clone(), nil
}

func (s *InMemoryStore) SetOnChainRef(_ context.Context, requestID id.RequestID, txRef, blockRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	req.OnChainTxRef = txRef
	req.OnChainBlockRef = blockRef
	s.requests[requestID] = req
	return nil
}

func (s *InMemoryStore) SetOnChainRefIfActive(_ context.Context, requestID id.RequestID, txRef, blockRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if req.Status.IsTerminal() {
		return nil
	}
	req.OnChainTxRef = txRef
	req.OnChainBlockRef = blockRef
	s.requests[requestID] = req
	return nil
}

func (s *InMemoryStore) FindActive(_ context.Context, wallet id.WalletAddress, electionID id.ElectionID) (models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.Wallet == wallet && req.ElectionID == electionID && req.Status.IsActive() {
			return req.Clone(), nil
		}
	}
	return models.VerificationRequest{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindRecent(ctx context.Context, wallet id.WalletAddress, window time.Duration) ([]models.VerificationRequest, error) {
	cutoff := requestcontext.Now(ctx).Add(-window)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VerificationRequest
	for _, req := range s.requests {
		if req.Wallet == wallet && req.CreatedAt.After(cutoff) {
			out = append(out, req.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindVerified(_ context.Context, subjectHash id.SubjectHash, electionID id.ElectionID) (models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.SubjectHash == subjectHash && req.ElectionID == electionID &&
			req.Status == models.StatusCompleted && req.IsVerified != nil && *req.IsVerified {
			return req.Clone(), nil
		}
	}
	return models.VerificationRequest{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Query(_ context.Context, f Filters, page, pageSize int) ([]models.VerificationRequest, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	s.mu.RLock()
	var matched []models.VerificationRequest
	for _, req := range s.requests {
		if matches(req, f) {
			matched = append(matched, req.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) All(_ context.Context) ([]models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.VerificationRequest, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Clone())
	}
	return out, nil
}

func matches(req models.VerificationRequest, f Filters) bool {
	if !f.Wallet.IsNil() && req.Wallet != f.Wallet {
		return false
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if !f.ElectionID.IsNil() && req.ElectionID != f.ElectionID {
		return false
	}
	return true
}
