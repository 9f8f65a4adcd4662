package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"loyalty-promo-backend/internal/features/txlog/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Record(ctx context.Context, tx *sql.Tx, entry models.Entry) error {
	const q = `
	INSERT INTO transaction_log (type, participant_id, staff_user_id, points_change, prize_id, note)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`

	_, err := tx.ExecContext(ctx, q,
		entry.Type,
		entry.ParticipantID,
		entry.StaffID,
		entry.PointsChange,
		entry.PrizeID,
		entry.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to write transaction log: %w", err)
	}
	return nil
}

// Query returns log entries newest-first, with participant, staff and
// prize names joined in where referenced.
func (r *Repository) Query(ctx context.Context, filters models.Filters, limit, offset int) ([]models.LogEntry, error) {
	var (
		conditions []string
		args       []interface{}
	)

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters.Type != "" {
		add("tl.type = $%d", filters.Type)
	}
	if filters.ParticipantID != 0 {
		add("tl.participant_id = $%d", filters.ParticipantID)
	}
	if filters.StaffID != 0 {
		add("tl.staff_user_id = $%d", filters.StaffID)
	}
	if !filters.From.IsZero() {
		add("tl.created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("tl.created_at <= $%d", filters.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`
	SELECT tl.id, tl.type, tl.participant_id,
	       NULLIF(CONCAT(p.first_name, ' ', p.last_name), ' ') AS participant_name,
	       tl.staff_user_id,
	       NULLIF(CONCAT(s.first_name, ' ', s.last_name), ' ') AS staff_name,
	       tl.points_change, tl.prize_id, pr.name AS prize_name, tl.note, tl.created_at
	FROM transaction_log tl
	LEFT JOIN participants p ON tl.participant_id = p.id
	LEFT JOIN staff_users s ON tl.staff_user_id = s.id
	LEFT JOIN prizes pr ON tl.prize_id = pr.id
	%s
	ORDER BY tl.created_at DESC, tl.id DESC
	LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction log: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(
			&e.ID, &e.Type, &e.ParticipantID, &e.ParticipantName,
			&e.StaffID, &e.StaffName, &e.PointsChange,
			&e.PrizeID, &e.PrizeName, &e.Note, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
