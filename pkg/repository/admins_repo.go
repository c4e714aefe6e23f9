package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

const adminColumns = `id, email, name, phone, role, password_hash, email_verified, metadata, created_at, updated_at`

// AdminsRepository handles administrator account persistence.
type AdminsRepository struct {
	db *sql.DB
}

// NewAdminsRepository creates a new admins repository.
func NewAdminsRepository(db *sql.DB) *AdminsRepository {
	return &AdminsRepository{db: db}
}

// Create creates a new administrator.
func (r *AdminsRepository) Create(ctx context.Context, admin *domain.Admin) error {
	return r.CreateTx(ctx, r.db, admin)
}

// CreateTx creates a new administrator using q.
func (r *AdminsRepository) CreateTx(ctx context.Context, q Querier, admin *domain.Admin) error {
	query := `
		INSERT INTO admins (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var metadata any
	if len(admin.Metadata) > 0 {
		metadata = string(admin.Metadata)
	}
	_, err := q.ExecContext(ctx, query,
		admin.ID, admin.Email, admin.Name, admin.Phone, admin.Role, admin.PasswordHash,
		admin.EmailVerified, metadata, admin.CreatedAt, admin.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByID retrieves an administrator by ID.
func (r *AdminsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an administrator by normalized email.
func (r *AdminsRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks whether an administrator uses email.
func (r *AdminsRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM admins WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// UpdatePassword replaces an administrator's password hash.
func (r *AdminsRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE admins
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now())
	return expectOneRow(result, err)
}

// UpdateEmail moves an administrator to a new, verified address.
func (r *AdminsRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	query := `
		UPDATE admins
		SET email = $2, email_verified = TRUE, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, email, time.Now())
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return expectOneRow(result, err)
}

func expectOneRow(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	admin := &domain.Admin{}
	var metadata []byte
	err := row.Scan(
		&admin.ID, &admin.Email, &admin.Name, &admin.Phone, &admin.Role, &admin.PasswordHash,
		&admin.EmailVerified, &metadata, &admin.CreatedAt, &admin.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		admin.Metadata = metadata
	}
	return admin, nil
}
