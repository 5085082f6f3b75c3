//go:build integration

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
	"verivote/pkg/testutil/containers"
)

// =============================================================================
// PostgreSQL Store Integration Suite
// =============================================================================
// Justification for integration tests: the row-lock transition path and the
// dynamic Query SQL cannot be exercised without a real database. The suite
// mirrors the in-memory store tests for the behaviors that involve SQL.

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newRequest(n int) models.VerificationRequest {
	subject := fmt.Sprintf("317401234567%04d", n)
	wallet := id.WalletAddress(fmt.Sprintf("0x%040d", n))
	return models.VerificationRequest{
		ID:          id.NewRequestID(subject, wallet, s.now.UnixNano()+int64(n)),
		SubjectHash: id.HashSubjectID(subject),
		SubjectName: "Voter",
		Wallet:      wallet,
		Status:      models.StatusPending,
		CreatedAt:   s.now.Add(time.Duration(n) * time.Second),
		Metadata:    map[string]string{"source": "test"},
	}
}

func (s *PostgresStoreSuite) TestCreateGetRoundtrip() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(req.SubjectHash, got.SubjectHash)
	s.Equal(models.StatusPending, got.Status)
	s.Equal("test", got.Metadata["source"])
	s.Nil(got.IsVerified)
	s.Nil(got.CompletedAt)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))
	s.ErrorIs(s.store.Create(s.ctx, req), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateStatusLifecycle() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	for _, to := range []models.Status{
		models.StatusProcessing, models.StatusValidating, models.StatusVerifying,
	} {
		_, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{To: to})
		s.Require().NoError(err, "transition to %s", to)
	}

	verified := true
	confidence := 0.95
	done, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To:         models.StatusCompleted,
		IsVerified: &verified,
		Confidence: &confidence,
		Method:     models.MethodProvider,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.Require().NotNil(done.IsVerified)
	s.True(*done.IsVerified)
	s.NotNil(done.ProcessingStartedAt)
	s.NotNil(done.CompletedAt)

	// Round-trip through SQL preserves the verdict.
	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Confidence)
	s.InDelta(0.95, *got.Confidence, 1e-9)
	s.Equal(models.MethodProvider, got.Method)
}

func (s *PostgresStoreSuite) TestUpdateStatusRejectsIllegal() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	_, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{To: models.StatusCompleted})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.UpdateStatus(s.ctx, id.RequestID("0000000000000000000000000000000000000000000000000000000000000000"), models.Transition{To: models.StatusProcessing})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestForcedOverridePersistsOperator() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	verified := true
	done, err := s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To:         models.StatusCompleted,
		IsVerified: &verified,
		Method:     models.MethodManualOverride,
		Metadata:   map[string]string{"override_operator": "op-7"},
		Force:      true,
	})
	s.Require().NoError(err)
	s.Equal("op-7", done.Metadata["override_operator"])

	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("op-7", got.Metadata["override_operator"])
	s.Equal("test", got.Metadata["source"])
}

func (s *PostgresStoreSuite) TestSetOnChainRefIfActive() {
	req := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, req))

	s.Require().NoError(s.store.SetOnChainRefIfActive(s.ctx, req.ID, "0xsubmit", "41"))
	got, err := s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("0xsubmit", got.OnChainTxRef)

	verified := true
	_, err = s.store.UpdateStatus(s.ctx, req.ID, models.Transition{
		To: models.StatusCompleted, IsVerified: &verified, Force: true})
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetOnChainRef(s.ctx, req.ID, "0xcomplete", "42"))

	// The guarded UPDATE must skip terminal rows without reporting an error.
	s.Require().NoError(s.store.SetOnChainRefIfActive(s.ctx, req.ID, "0xsubmit-late", "41"))
	got, err = s.store.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("0xcomplete", got.OnChainTxRef)
	s.Equal("42", got.OnChainBlockRef)

	s.ErrorIs(s.store.SetOnChainRefIfActive(s.ctx,
		id.RequestID("0000000000000000000000000000000000000000000000000000000000000000"), "a", "b"),
		sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFinders() {
	active := s.newRequest(1)
	s.Require().NoError(s.store.Create(s.ctx, active))

	old := s.newRequest(2)
	old.Wallet = active.Wallet
	old.CreatedAt = s.now.Add(-2 * time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, old))

	s.Run("FindActive returns the in-flight request", func() {
		got, err := s.store.FindActive(s.ctx, active.Wallet, "")
		s.Require().NoError(err)
		s.Equal(active.Wallet, got.Wallet)
	})

	s.Run("FindRecent excludes requests outside the window", func() {
		found, err := s.store.FindRecent(s.ctx, active.Wallet, time.Hour)
		s.Require().NoError(err)
		s.Len(found, 1)
	})
}

func (s *PostgresStoreSuite) TestQueryPaginatesNewestFirst() {
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

	last, _, err := s.store.Query(s.ctx, Filters{Wallet: wallet}, 3, 2)
	s.Require().NoError(err)
	s.Len(last, 1)
}
