package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
	"verivote/pkg/platform/sentinel"
	"verivote/pkg/requestcontext"
)

// =============================================================================
// In-Memory Store Test Suite
// =============================================================================
// Justification for unit tests: the store is the only mutation path for
// request lifecycle state. These tests pin transition legality enforcement,
// snapshot isolation, and the guard-backing finders.

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) newRequest(n int) models.VerificationRequest {
	subject := fmt.Sprintf("317401234567%04d", n)
	wallet := id.WalletAddress(fmt.Sprintf("0x%040d", n))
	return models.VerificationRequest{
		ID:          id.NewRequestID(subject, wallet, s.now.UnixNano()+int64(n)),
		SubjectHash: id.HashSubjectID(subject),
		SubjectName: "Voter",
		Wallet:      wallet,
		Status:      models.StatusPending,
		CreatedAt:   s.now.Add(time.Duration(n) * time.Second),
	}
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(models.StatusPending, got.Status)
}

func (s *InMemoryStoreSuite) TestCreateDuplicateConflicts() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))
	s.ErrorIs(s.store.Create(s.ctx, req), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestGetUnknownNotFound() {
	_, err := s.store.Get(s.ctx, id.RequestID("missing"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateStatusEnforcesMachine() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	s.Run("legal transition applies and stamps", func() {
		updated, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{To: models.StatusProcessing})
		s.Require().NoError(err)
		s.Equal(models.StatusProcessing, updated.Status)
		s.Require().NotNil(updated.ProcessingStartedAt)
		s.Equal(s.now, *updated.ProcessingStartedAt)
	})

	s.Run("illegal transition is rejected without mutation", func() {
		_, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{To: models.StatusCompleted})
		s.ErrorIs(err, sentinel.ErrInvalidState)

		got, err := s.store.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusProcessing, got.Status)
	})

	s.Run("unknown request is not found", func() {
		_, err := s.store.UpdateStatus(s.ctx, id.RequestID("missing"), models.Transition{To: models.StatusProcessing})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestUpdateStatusTerminalIsFinal() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))
	_, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To: models.StatusFailed, FailureReason: "invalid format"})
	s.Require().NoError(err)

	_, err = s.store.UpdateStatus(s.ctx, req.ID, models.Transition{To: models.StatusProcessing})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	// A forced completion may still override a failure.
	verified := true
	updated, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To: models.StatusCompleted, IsVerified: &verified, Force: true})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, updated.Status)

	// But nothing overrides a completion.
	_, err = s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To: models.StatusCompleted, Force: true})
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *InMemoryStoreSuite) TestSnapshotIsolation() {
	req := s.newRequest(1)
	req.Metadata = map[string]string{"source": "web"}
	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	got.Metadata["source"] = "tampered"

	again, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("web", again.Metadata["source"])
}

func (s *InMemoryStoreSuite) TestSetOnChainRef() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))
	s.Require().NoError(s.store.SetOnChainRef(s.ctx, req.ID, "0xabc", "42"))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("0xabc", got.OnChainTxRef)
	s.Equal("42", got.OnChainBlockRef)

	s.ErrorIs(s.store.SetOnChainRef(s.ctx, id.RequestID("missing"), "a", "b"), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestSetOnChainRefIfActive() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	s.Run("writes while the request is active", func() {
		s.Require().NoError(s.store.SetOnChainRefIfActive(s.ctx, req.ID, "0xsubmit", "41"))
		got, err := s.store.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal("0xsubmit", got.OnChainTxRef)
	})

	s.Run("a late registration receipt never overwrites the completion receipt", func() {
		verified := true
		_, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
			To: models.StatusCompleted, IsVerified: &verified, Force: true})
		s.Require().NoError(err)
		s.Require().NoError(s.store.SetOnChainRef(s.ctx, req.ID, "0xcomplete", "42"))

		s.Require().NoError(s.store.SetOnChainRefIfActive(s.ctx, req.ID, "0xsubmit-late", "41"))

		got, err := s.store.Get(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal("0xcomplete", got.OnChainTxRef)
		s.Equal("42", got.OnChainBlockRef)
	})

	s.Run("unknown request is not found", func() {
		s.ErrorIs(s.store.SetOnChainRefIfActive(s.ctx, id.RequestID("missing"), "a", "b"), sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestFindActive() {
	active := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, active))

	done := s.newRequest(2)
	done.Wallet = active.Wallet
	done.Status = models.StatusCompleted
	s.Require().NoError(s.store.Create(s.ctx, done))

	got, err := s.store.FindActive(s.ctx, active.Wallet, "")
	s.Require().NoError(err)
	s.Equal(active.ID, got.ID)

	_, err = s.store.FindActive(s.ctx, id.WalletAddress("0x"+"9"+"000000000000000000000000000000000000000"), "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFindRecentRespectsWindow() {
	recent := s.newRequest(1)
	recent.CreatedAt = s.now.Add(-10 * time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, recent))

	old := s.newRequest(2)
	old.Wallet = recent.Wallet
	old.CreatedAt = s.now.Add(-2 * time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, old))

	found, err := s.store.FindRecent(s.ctx, recent.Wallet, time.Hour)
	s.Require().NoError(err)
	s.Len(found, 1)
	s.Equal(recent.ID, found[0].ID)
}

func (s *InMemoryStoreSuite) TestFindVerified() {
	verified := true
	req := s.newRequest(1)
	req.ElectionID = id.ElectionID("election-2026")
	req.Status = models.StatusCompleted
	req.IsVerified = &verified
	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.FindVerified(s.ctx, req.SubjectHash, req.ElectionID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)

	s.Run("different election does not match", func() {
		_, err := s.store.FindVerified(s.ctx, req.SubjectHash, id.ElectionID("election-2031"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unverified completion does not match", func() {
		notVerified := false
		other := s.newRequest(2)
		other.ElectionID = id.ElectionID("election-2026")
		other.Status = models.StatusCompleted
		other.IsVerified = &notVerified
		s.Require().NoError(s.store.Create(s.ctx, other))

		_, err := s.store.FindVerified(s.ctx, other.SubjectHash, other.ElectionID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestQueryPaginatesNewestFirst() {
	wallet := id.WalletAddress("0x00112233445566778899aabbccddeeff00112233")
	for i := 0; i < 5; i++ {
		req := s.newRequest(i)
		req.Wallet = wallet
		s.Require().NoError(s.store.Create(s.ctx, req))
	}

	first, total, err := s.store.Query(s.ctx, Filters{Wallet: wallet}, 1, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(first, 2)
	s.True(first[0].CreatedAt.After(first[1].CreatedAt))

	last, total, err := s.store.Query(s.ctx, Filters{Wallet: wallet}, 3, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Len(last, 1)

	beyond, total, err := s.store.Query(s.ctx, Filters{Wallet: wallet}, 4, 2)
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Empty(beyond)
}

func (s *InMemoryStoreSuite) TestQueryFilters() {
	req := s.newRequest(1)
	req.Status = models.StatusFailed
	req.ElectionID = id.ElectionID("election-2026")
	s.Require().NoError(s.store.Create(s.ctx, req))
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(2)))

	byStatus, total, err := s.store.Query(s.ctx, Filters{Status: models.StatusFailed}, 1, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(byStatus, 1)
	s.Equal(req.ID, byStatus[0].ID)

	byElection, total, err := s.store.Query(s.ctx, Filters{ElectionID: "election-2026"}, 1, 10)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Len(byElection, 1)
}
