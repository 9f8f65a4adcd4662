package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	participantmodels "loyalty-promo-backend/internal/features/participant/models"
	"loyalty-promo-backend/internal/features/prize/models"
	txlogmodels "loyalty-promo-backend/internal/features/txlog/models"
	txlogrepo "loyalty-promo-backend/internal/features/txlog/repository"
	"loyalty-promo-backend/internal/platform/postgres"
)

const prizeColumns = `id, name, description, image_url, cost_points, stock_qty, status, created_at`

type PrizeRepository struct {
	db   *sql.DB
	logs txlogrepo.Recorder
}

func NewPrizeRepository(db *sql.DB, logs txlogrepo.Recorder) *PrizeRepository {
	return &PrizeRepository{db: db, logs: logs}
}

func scanPrize(row interface{ Scan(...interface{}) error }) (*models.Prize, error) {
	var p models.Prize
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL,
		&p.CostPoints, &p.StockQty, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrizeRepository) Create(ctx context.Context, in models.CreateInput) (*models.Prize, error) {
	const q = `
	INSERT INTO prizes (name, description, image_url, cost_points, stock_qty)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + prizeColumns

	return scanPrize(r.db.QueryRowContext(ctx, q,
		in.Name, in.Description, in.ImageURL, in.CostPoints, in.StockQty))
}

func (r *PrizeRepository) Update(ctx context.Context, id int64, in models.UpdateInput) (*models.Prize, error) {
	var (
		sets []string
		args []interface{}
	)

	set := func(column string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Name != nil {
		set("name", *in.Name)
	}
	if in.Description != nil {
		set("description", *in.Description)
	}
	if in.ImageURL != nil {
		set("image_url", *in.ImageURL)
	}
	if in.CostPoints != nil {
		set("cost_points", *in.CostPoints)
	}
	if in.ClearStock {
		sets = append(sets, "stock_qty = NULL")
	} else if in.StockQty != nil {
		set("stock_qty", *in.StockQty)
	}
	if in.Status != nil {
		set("status", *in.Status)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE prizes SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), prizeColumns)

	p, err := scanPrize(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PrizeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prizes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrPrizeNotFound
	}
	return nil
}

func (r *PrizeRepository) GetByID(ctx context.Context, id int64) (*models.Prize, error) {
	const q = `SELECT ` + prizeColumns + ` FROM prizes WHERE id = $1`
	p, err := scanPrize(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *PrizeRepository) List(ctx context.Context) ([]models.Prize, error) {
	const q = `SELECT ` + prizeColumns + ` FROM prizes ORDER BY created_at DESC`
	return r.queryPrizes(ctx, q)
}

func (r *PrizeRepository) ListActive(ctx context.Context) ([]models.Prize, error) {
	const q = `
	SELECT ` + prizeColumns + `
	FROM prizes
	WHERE status = 'ACTIVE' AND (stock_qty IS NULL OR stock_qty > 0)
	ORDER BY cost_points ASC`
	return r.queryPrizes(ctx, q)
}

func (r *PrizeRepository) queryPrizes(ctx context.Context, q string) ([]models.Prize, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prizes []models.Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, err
		}
		prizes = append(prizes, *p)
	}
	return prizes, rows.Err()
}

// Redeem runs the whole exchange as one transaction: both rows locked
// up front (participant, then prize), every check against the locked
// state, then balance, stock and audit writes that commit together or
// not at all.
func (r *PrizeRepository) Redeem(ctx context.Context, participantID, prizeID, staffID int64) error {
	return postgres.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			participantStatus participantmodels.Status
			activePoints      int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, active_points FROM participants WHERE id = $1 FOR UPDATE`,
			participantID).Scan(&participantStatus, &activePoints)
		if errors.Is(err, sql.ErrNoRows) {
			return participantmodels.ErrNotFound
		}
		if err != nil {
			return err
		}
		if participantStatus == participantmodels.StatusLocked {
			return participantmodels.ErrLocked
		}

		var (
			prizeName   string
			prizeStatus models.Status
			costPoints  int
			stockQty    *int
		)
		err = tx.QueryRowContext(ctx,
			`SELECT name, status, cost_points, stock_qty FROM prizes WHERE id = $1 FOR UPDATE`,
			prizeID).Scan(&prizeName, &prizeStatus, &costPoints, &stockQty)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrPrizeNotFound
		}
		if err != nil {
			return err
		}
		if prizeStatus != models.StatusActive {
			return models.ErrPrizeInactive
		}

		if activePoints < costPoints {
			return models.ErrInsufficientPoints
		}
		if stockQty != nil && *stockQty <= 0 {
			return models.ErrOutOfStock
		}

		// Spend already-earned points: total_points is history and
		// stays untouched.
		if _, err := tx.ExecContext(ctx,
			`UPDATE participants SET active_points = active_points - $1, updated_at = NOW() WHERE id = $2`,
			costPoints, participantID); err != nil {
			return err
		}

		if stockQty != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE prizes SET stock_qty = stock_qty - 1, updated_at = NOW() WHERE id = $1`,
				prizeID); err != nil {
				return err
			}
		}

		change := -costPoints
		return r.logs.Record(ctx, tx, txlogmodels.Entry{
			Type:          txlogmodels.TypeRedeem,
			ParticipantID: &participantID,
			StaffID:       &staffID,
			PrizeID:       &prizeID,
			PointsChange:  &change,
			Note:          fmt.Sprintf("Redeemed: %s", prizeName),
		})
	})
}
