package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

const verificationSessionColumns = `
	id, flow_type, email, account_id, otp_hash, otp_expires_at,
	verification_token_hash, token_expires_at, failed_attempts,
	status, payload, version, created_at, updated_at`

// VerificationSessionsRepository handles verification session persistence in PostgreSQL.
type VerificationSessionsRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewVerificationSessionsRepository creates a new verification sessions repository.
func NewVerificationSessionsRepository(db *sql.DB) *VerificationSessionsRepository {
	return &VerificationSessionsRepository{db: db, now: time.Now}
}

// Create inserts a session, deleting any earlier session for the same flow
// and email (or the same flow and account) in the same transaction.
func (r *VerificationSessionsRepository) Create(ctx context.Context, session *domain.VerificationSession) error {
	payload, err := json.Marshal(session.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.supersedeTx(ctx, tx, session); err != nil {
			return err
		}

		query := `
			INSERT INTO verification_sessions (` + verificationSessionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`
		_, err := tx.ExecContext(ctx, query,
			session.ID, session.FlowType, session.Email, session.AccountID,
			session.OTPHash, session.OTPExpiresAt,
			session.VerificationTokenHash, session.TokenExpiresAt, session.FailedAttempts,
			session.Status, string(payload), session.Version, session.CreatedAt, session.UpdatedAt,
		)
		return err
	})
}

func (r *VerificationSessionsRepository) supersedeTx(ctx context.Context, q Querier, session *domain.VerificationSession) error {
	query := `
		DELETE FROM verification_sessions
		WHERE flow_type = $1 AND (email = $2 OR ($3::uuid IS NOT NULL AND account_id = $3))
	`
	_, err := q.ExecContext(ctx, query, session.FlowType, session.Email, session.AccountID)
	return err
}

// Get retrieves a session by ID. An expired session is deleted and
// reported as domain.ErrSessionExpired.
func (r *VerificationSessionsRepository) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error) {
	query := `SELECT ` + verificationSessionColumns + ` FROM verification_sessions WHERE id = $1`
	session, err := scanVerificationSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if session.IsExpired(r.now()) {
		if err := r.deleteVersion(ctx, session); err != nil {
			return nil, err
		}
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// FindActive retrieves the non-terminal session for a flow and email.
func (r *VerificationSessionsRepository) FindActive(ctx context.Context, flow domain.FlowType, email string) (*domain.VerificationSession, error) {
	query := `
		SELECT ` + verificationSessionColumns + `
		FROM verification_sessions
		WHERE flow_type = $1 AND email = $2 AND status <> $3
	`
	session, err := scanVerificationSession(r.db.QueryRowContext(ctx, query, flow, email, domain.StatusRejected))
	if err != nil {
		return nil, err
	}

	if session.IsExpired(r.now()) {
		if err := r.deleteVersion(ctx, session); err != nil {
			return nil, err
		}
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Update writes the session if nobody else has written it since it was read.
func (r *VerificationSessionsRepository) Update(ctx context.Context, session *domain.VerificationSession) error {
	payload, err := json.Marshal(session.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		UPDATE verification_sessions
		SET email = $3, otp_hash = $4, otp_expires_at = $5,
		    verification_token_hash = $6, token_expires_at = $7, failed_attempts = $8,
		    status = $9, payload = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		session.ID, session.Version, session.Email,
		session.OTPHash, session.OTPExpiresAt,
		session.VerificationTokenHash, session.TokenExpiresAt, session.FailedAttempts,
		session.Status, string(payload), session.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSessionStale
	}

	session.Version++
	return nil
}

// RecordAttempt increments failed_attempts in place. The row lock taken by
// the UPDATE serializes concurrent submissions against the same code.
func (r *VerificationSessionsRepository) RecordAttempt(ctx context.Context, id uuid.UUID, otpHash string) (int, error) {
	query := `
		UPDATE verification_sessions
		SET failed_attempts = failed_attempts + 1
		WHERE id = $1 AND otp_hash = $2
		RETURNING failed_attempts
	`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, id, otpHash).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrSessionStale
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// Delete removes a session. Missing sessions are ignored.
func (r *VerificationSessionsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_sessions WHERE id = $1`, id)
	return err
}

// deleteVersion removes the session only if it is unchanged since it was read.
func (r *VerificationSessionsRepository) deleteVersion(ctx context.Context, session *domain.VerificationSession) error {
	query := `DELETE FROM verification_sessions WHERE id = $1 AND version = $2`
	_, err := r.db.ExecContext(ctx, query, session.ID, session.Version)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerificationSession(row rowScanner) (*domain.VerificationSession, error) {
	session := &domain.VerificationSession{}
	var payload []byte
	err := row.Scan(
		&session.ID, &session.FlowType, &session.Email, &session.AccountID,
		&session.OTPHash, &session.OTPExpiresAt,
		&session.VerificationTokenHash, &session.TokenExpiresAt, &session.FailedAttempts,
		&session.Status, &payload, &session.Version, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !session.FlowType.Valid() {
		return nil, fmt.Errorf("session %s has unknown flow %q", session.ID, session.FlowType)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &session.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return session, nil
}
