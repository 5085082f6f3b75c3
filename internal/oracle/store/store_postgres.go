package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"verivote/internal/oracle/models"
	id "verivote/pkg/domain"
	"verivote/pkg/platform/sentinel"
	"verivote/pkg/requestcontext"
)

// PostgresStore persists verification requests in PostgreSQL. Lifecycle
// transitions take a row lock (SELECT ... FOR UPDATE) so two workers can
// never both win a transition race on the same request.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed request store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the request table. Applied by EnsureSchema and by
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_requests (
	id                    TEXT PRIMARY KEY,
	subject_hash          TEXT NOT NULL,
	subject_name          TEXT NOT NULL,
	wallet                TEXT NOT NULL,
	election_id           TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	is_verified           BOOLEAN,
	confidence            DOUBLE PRECISION,
	failure_reason        TEXT NOT NULL DEFAULT '',
	method                TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL,
	processing_started_at TIMESTAMPTZ,
	completed_at          TIMESTAMPTZ,
	onchain_tx_ref        TEXT NOT NULL DEFAULT '',
	onchain_block_ref     TEXT NOT NULL DEFAULT '',
	metadata              JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_verification_requests_wallet_created
	ON verification_requests (wallet, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_verification_requests_subject_election
	ON verification_requests (subject_hash, election_id);
`

// EnsureSchema applies the request table DDL.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply verification_requests schema: %w", err)
	}
	return nil
}

const requestColumns = `id, subject_hash, subject_name, wallet, election_id, status,
	is_verified, confidence, failure_reason, method,
	created_at, processing_started_at, completed_at,
	onchain_tx_ref, onchain_block_ref, metadata`

func (s *PostgresStore) Create(ctx context.Context, req models.VerificationRequest) error {
	meta, err := json.Marshal(req.Metadata)
	if err != nil {
		return fmt.Errorf("marshal request metadata: %w", err)
	}
	if req.Metadata == nil {
		meta = []byte("{}")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO NOTHING`,
		req.ID.String(), req.SubjectHash.String(), req.SubjectName,
		req.Wallet.String(), req.ElectionID.String(), req.Status.String(),
		req.IsVerified, req.Confidence, req.FailureReason, req.Method,
		req.CreatedAt, req.ProcessingStartedAt, req.CompletedAt,
		req.OnChainTxRef, req.OnChainBlockRef, meta,
	)
	if err != nil {
		return fmt.Errorf("insert verification request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert verification request: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID id.RequestID) (models.VerificationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests WHERE id = $1`, requestID.String())
	return scanRequest(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, requestID id.RequestID, tr models.Transition) (models.VerificationRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.VerificationRequest{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests WHERE id = $1 FOR UPDATE`, requestID.String())
	req, err := scanRequest(row)
	if err != nil {
		return models.VerificationRequest{}, err
	}
	if !tr.Allowed(req.Status) {
		return models.VerificationRequest{}, sentinel.ErrInvalidState
	}

	updated := req.Apply(tr, requestcontext.Now(ctx))
	meta, err := json.Marshal(updated.Metadata)
	if err != nil {
		return models.VerificationRequest{}, fmt.Errorf("marshal request metadata: %w", err)
	}
	if updated.Metadata == nil {
		meta = []byte("{}")
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE verification_requests
		SET status = $2, is_verified = $3, confidence = $4,
		    failure_reason = $5, method = $6,
		    processing_started_at = $7, completed_at = $8, metadata = $9
		WHERE id = $1`,
		requestID.String(), updated.Status.String(), updated.IsVerified, updated.Confidence,
		updated.FailureReason, updated.Method,
		updated.ProcessingStartedAt, updated.CompletedAt, meta,
	)
	if err != nil {
		return models.VerificationRequest{}, fmt.Errorf("apply transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.VerificationRequest{}, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) SetOnChainRef(ctx context.Context, requestID id.RequestID, txRef, blockRef string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_requests
		SET onchain_tx_ref = $2, onchain_block_ref = $3
		WHERE id = $1`, requestID.String(), txRef, blockRef)
	if err != nil {
		return fmt.Errorf("set onchain ref: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set onchain ref: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetOnChainRefIfActive(ctx context.Context, requestID id.RequestID, txRef, blockRef string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_requests
		SET onchain_tx_ref = $2, onchain_block_ref = $3
		WHERE id = $1 AND status NOT IN ('completed','failed')`,
		requestID.String(), txRef, blockRef)
	if err != nil {
		return fmt.Errorf("set onchain ref if active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set onchain ref if active: %w", err)
	}
	if affected > 0 {
		return nil
	}
	// Distinguish "terminal, skipped" from "no such request".
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verification_requests WHERE id = $1)`,
		requestID.String()).Scan(&exists); err != nil {
		return fmt.Errorf("set onchain ref if active: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, wallet id.WalletAddress, electionID id.ElectionID) (models.VerificationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests
		WHERE wallet = $1 AND election_id = $2
		  AND status IN ('pending','processing','validating','verifying')
		ORDER BY created_at DESC
		LIMIT 1`, wallet.String(), electionID.String())
	return scanRequest(row)
}

func (s *PostgresStore) FindRecent(ctx context.Context, wallet id.WalletAddress, window time.Duration) ([]models.VerificationRequest, error) {
	cutoff := requestcontext.Now(ctx).Add(-window)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests
		WHERE wallet = $1 AND created_at > $2
		ORDER BY created_at DESC`, wallet.String(), cutoff)
	if err != nil {
		return nil, fmt.Errorf("find recent requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PostgresStore) FindVerified(ctx context.Context, subjectHash id.SubjectHash, electionID id.ElectionID) (models.VerificationRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests
		WHERE subject_hash = $1 AND election_id = $2
		  AND status = 'completed' AND is_verified = TRUE
		LIMIT 1`, subjectHash.String(), electionID.String())
	return scanRequest(row)
}

func (s *PostgresStore) Query(ctx context.Context, f Filters, page, pageSize int) ([]models.VerificationRequest, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := "TRUE"
	args := []any{}
	next := 1
	if !f.Wallet.IsNil() {
		where += fmt.Sprintf(" AND wallet = $%d", next)
		args = append(args, f.Wallet.String())
		next++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", next)
		args = append(args, f.Status.String())
		next++
	}
	if !f.ElectionID.IsNil() {
		where += fmt.Sprintf(" AND election_id = $%d", next)
		args = append(args, f.ElectionID.String())
		next++
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM verification_requests WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT `+requestColumns+`
		FROM verification_requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, next, next+1), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()
	out, err := scanRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]models.VerificationRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM verification_requests`)
	if err != nil {
		return nil, fmt.Errorf("scan all requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.VerificationRequest, error) {
	var (
		req        models.VerificationRequest
		reqID      string
		subject    string
		wallet     string
		election   string
		status     string
		isVerified sql.NullBool
		confidence sql.NullFloat64
		startedAt  sql.NullTime
		doneAt     sql.NullTime
		meta       []byte
	)
	err := row.Scan(&reqID, &subject, &req.SubjectName, &wallet, &election, &status,
		&isVerified, &confidence, &req.FailureReason, &req.Method,
		&req.CreatedAt, &startedAt, &doneAt,
		&req.OnChainTxRef, &req.OnChainBlockRef, &meta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VerificationRequest{}, sentinel.ErrNotFound
		}
		return models.VerificationRequest{}, fmt.Errorf("scan verification request: %w", err)
	}
	req.ID = id.RequestID(reqID)
	req.SubjectHash = id.SubjectHash(subject)
	req.Wallet = id.WalletAddress(wallet)
	req.ElectionID = id.ElectionID(election)
	req.Status = models.Status(status)
	if isVerified.Valid {
		req.IsVerified = &isVerified.Bool
	}
	if confidence.Valid {
		req.Confidence = &confidence.Float64
	}
	if startedAt.Valid {
		ts := startedAt.Time
		req.ProcessingStartedAt = &ts
	}
	if doneAt.Valid {
		ts := doneAt.Time
		req.CompletedAt = &ts
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &req.Metadata); err != nil {
			return models.VerificationRequest{}, fmt.Errorf("unmarshal request metadata: %w", err)
		}
	}
	return req, nil
}

func scanRequests(rows *sql.Rows) ([]models.VerificationRequest, error) {
	var out []models.VerificationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}
