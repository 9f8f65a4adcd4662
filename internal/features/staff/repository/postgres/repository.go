package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loyalty-promo-backend/internal/features/staff/models"
	txlogmodels "loyalty-promo-backend/internal/features/txlog/models"
	txlogrepo "loyalty-promo-backend/internal/features/txlog/repository"
	"loyalty-promo-backend/internal/platform/postgres"
)

const staffColumns = `id, first_name, last_name, email, username, password_hash, role, status, created_at`

type StaffRepository struct {
	db   *sql.DB
	logs txlogrepo.Recorder
}

func NewStaffRepository(db *sql.DB, logs txlogrepo.Recorder) *StaffRepository {
	return &StaffRepository{db: db, logs: logs}
}

func scanStaff(row interface{ Scan(...interface{}) error }) (*models.StaffUser, error) {
	var u models.StaffUser
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username,
		&u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*models.StaffUser, error) {
	const q = `SELECT ` + staffColumns + ` FROM staff_users WHERE username = $1`
	u, err := scanStaff(r.db.QueryRowContext(ctx, q, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	const q = `SELECT ` + staffColumns + ` FROM staff_users WHERE id = $1`
	u, err := scanStaff(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *StaffRepository) List(ctx context.Context) ([]models.StaffUser, error) {
	const q = `SELECT ` + staffColumns + ` FROM staff_users ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.StaffUser
	for rows.Next() {
		u, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *StaffRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *StaffRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *StaffRepository) Create(ctx context.Context, u *models.StaffUser, createdBy int64) (*models.StaffUser, error) {
	var created *models.StaffUser

	err := postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		const insert = `
		INSERT INTO staff_users (first_name, last_name, email, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + staffColumns

		row := tx.QueryRowContext(ctx, insert,
			u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.Role)

		var err error
		created, err = scanStaff(row)
		if err != nil {
			return err
		}

		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:    txlogmodels.TypeStaffCreate,
			StaffID: &createdBy,
			Note:    fmt.Sprintf("Created staff: %s (%s)", created.Username, created.Email),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *StaffRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, resetBy int64) error {
	return postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE staff_users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
			passwordHash, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return models.ErrNotFound
		}

		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:    txlogmodels.TypeResetPassword,
			StaffID: &resetBy,
			Note:    fmt.Sprintf("Reset password for staff ID: %d", id),
		})
	})
}

func (r *StaffRepository) SetStatus(ctx context.Context, id int64, status models.Status, changedBy int64) (*models.StaffUser, error) {
	var updated *models.StaffUser

	err := postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		const update = `
		UPDATE staff_users SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + staffColumns

		row := tx.QueryRowContext(ctx, update, status, id)
		var err error
		updated, err = scanStaff(row)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}

		logType := txlogmodels.TypeStaffActivate
		note := fmt.Sprintf("Activated staff ID: %d", id)
		if status == models.StatusDisabled {
			logType = txlogmodels.TypeStaffDeactivate
			note = fmt.Sprintf("Deactivated staff ID: %d", id)
		}

		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:    logType,
			StaffID: &changedBy,
			Note:    note,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *StaffRepository) CreateEmailVerification(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_email_verification (staff_email, code_hash, expires_at) VALUES ($1, $2, $3)`,
		email, codeHash, expiresAt)
	return err
}

func (r *StaffRepository) LatestEmailVerification(ctx context.Context, email string) (*models.EmailVerification, error) {
	const q = `
	SELECT id, staff_email, code_hash, expires_at, attempts, verified, created_at
	FROM staff_email_verification
	WHERE staff_email = $1 AND verified = FALSE
	ORDER BY created_at DESC
	LIMIT 1`

	var v models.EmailVerification
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&v.ID, &v.Email, &v.CodeHash, &v.ExpiresAt, &v.Attempts, &v.Verified, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *StaffRepository) IncrementVerificationAttempts(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE staff_email_verification SET attempts = attempts + 1, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *StaffRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE staff_email_verification SET verified = TRUE WHERE id = $1`, id)
	return err
}

func (r *StaffRepository) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_email_verification WHERE staff_email = $1 AND verified = TRUE)`,
		email).Scan(&exists)
	return exists, err
}
