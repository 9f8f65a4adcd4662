package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"loyalty-promo-backend/internal/features/participant/models"
	"loyalty-promo-backend/internal/features/participant/repository"
	txlogmodels "loyalty-promo-backend/internal/features/txlog/models"
	txlogrepo "loyalty-promo-backend/internal/features/txlog/repository"
	"loyalty-promo-backend/internal/platform/postgres"
)

const participantColumns = `id, unique_id, first_name, last_name, gov_id, phone, email,
	total_points, active_points, status, created_at`

type ParticipantRepository struct {
	db   *sql.DB
	logs txlogrepo.Recorder
}

func NewParticipantRepository(db *sql.DB, logs txlogrepo.Recorder) *ParticipantRepository {
	return &ParticipantRepository{db: db, logs: logs}
}

func scanParticipant(row interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.UniqueID, &p.FirstName, &p.LastName, &p.GovID,
		&p.Phone, &p.Email, &p.TotalPoints, &p.ActivePoints, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) Create(ctx context.Context, in models.RegisterInput, staffID int64, genID func() (string, error)) (*models.Participant, error) {
	var created *models.Participant

	err := postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		uniqueID, err := r.reserveUniqueID(ctx, tx, genID)
		if err != nil {
			return err
		}

		const insert = `
		INSERT INTO participants (unique_id, first_name, last_name, gov_id, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + participantColumns

		row := tx.QueryRowContext(ctx, insert,
			uniqueID, in.FirstName, in.LastName, in.GovID, in.Phone, in.Email)
		created, err = scanParticipant(row)
		if err != nil {
			return mapUniqueViolation(err)
		}

		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:          txlogmodels.TypeRegister,
			ParticipantID: &created.ID,
			StaffID:       &staffID,
			Note:          fmt.Sprintf("Registered participant: %s", uniqueID),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// reserveUniqueID draws candidate ids until one is unused. The check
// runs inside the caller's transaction so an id issued once is never
// reissued to a different participant.
func (r *ParticipantRepository) reserveUniqueID(ctx context.Context, tx *sql.Tx, genID func() (string, error)) (string, error) {
	for {
		candidate, err := genID()
		if err != nil {
			return "", err
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM participants WHERE unique_id = $1)`,
			candidate).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "participants_phone_key":
			return models.ErrPhoneExists
		case "participants_email_key":
			return models.ErrEmailExists
		case "participants_gov_id_key":
			return models.ErrGovIDExists
		}
	}
	return err
}

func (r *ParticipantRepository) AddPoints(ctx context.Context, id int64, points int, staffID int64, note string) (*models.Participant, error) {
	var updated *models.Participant

	err := postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		var status models.Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM participants WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if status == models.StatusLocked {
			return models.ErrLocked
		}

		const update = `
		UPDATE participants
		SET total_points = total_points + $1,
		    active_points = active_points + $1,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING ` + participantColumns

		row := tx.QueryRowContext(ctx, update, points, id)
		updated, err = scanParticipant(row)
		if err != nil {
			return err
		}

		change := points
		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:          txlogmodels.TypeAddPoints,
			ParticipantID: &id,
			StaffID:       &staffID,
			PointsChange:  &change,
			Note:          note,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ParticipantRepository) SetStatus(ctx context.Context, id int64, status models.Status, staffID int64, reason string) error {
	return postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE participants SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, id)
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

		logType := txlogmodels.TypeLockParticipant
		if status == models.StatusActive {
			logType = txlogmodels.TypeUnlockParticipant
		}

		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:          logType,
			ParticipantID: &id,
			StaffID:       &staffID,
			Note:          reason,
		})
	})
}

func (r *ParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p, err := scanParticipant(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ParticipantRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE unique_id = $1`
	p, err := scanParticipant(r.db.QueryRowContext(ctx, q, uniqueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ParticipantRepository) Search(ctx context.Context, query string, limit int) ([]models.Participant, error) {
	const q = `
	SELECT ` + participantColumns + `
	FROM participants
	WHERE unique_id ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1
	ORDER BY created_at DESC
	LIMIT $2`

	return r.queryParticipants(ctx, q, "%"+escapeLikePattern(query)+"%", limit)
}

// escapeLikePattern neutralizes LIKE metacharacters so user input only
// ever matches literally.
func escapeLikePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ParticipantRepository) List(ctx context.Context, limit, offset int) ([]models.Participant, error) {
	const q = `
	SELECT ` + participantColumns + `
	FROM participants
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	return r.queryParticipants(ctx, q, limit, offset)
}

func (r *ParticipantRepository) queryParticipants(ctx context.Context, q string, args ...interface{}) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

func (r *ParticipantRepository) FieldExists(ctx context.Context, field repository.Field, value string) (bool, error) {
	var q string
	switch field {
	case repository.FieldPhone:
		q = `SELECT EXISTS (SELECT 1 FROM participants WHERE phone = $1)`
	case repository.FieldEmail:
		q = `SELECT EXISTS (SELECT 1 FROM participants WHERE email = $1)`
	case repository.FieldGovID:
		q = `SELECT EXISTS (SELECT 1 FROM participants WHERE gov_id = $1)`
	default:
		return false, fmt.Errorf("unknown participant field: %s", field)
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, q, value).Scan(&exists)
	return exists, err
}

func (r *ParticipantRepository) Leaderboard(ctx context.Context, limit, offset int) ([]models.LeaderboardEntry, error) {
	const q = `
	SELECT ROW_NUMBER() OVER (ORDER BY total_points DESC, created_at ASC) AS rank,
	       unique_id, first_name, last_name, total_points, active_points
	FROM participants
	WHERE status = 'ACTIVE'
	ORDER BY total_points DESC, created_at ASC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UniqueID, &e.FirstName, &e.LastName,
			&e.TotalPoints, &e.ActivePoints); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ParticipantRepository) PublicRank(ctx context.Context, uniqueID string) (*models.PublicRank, error) {
	const q = `
	SELECT (SELECT COUNT(*) + 1 FROM participants
	        WHERE total_points > p.total_points AND status = 'ACTIVE') AS rank,
	       p.unique_id, p.total_points, p.active_points
	FROM participants p
	WHERE p.unique_id = $1 AND p.status = 'ACTIVE'`

	var entry models.PublicRank
	err := r.db.QueryRowContext(ctx, q, uniqueID).Scan(
		&entry.Rank, &entry.UniqueID, &entry.TotalPoints, &entry.ActivePoints)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
