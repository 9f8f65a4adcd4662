package repository

import (
	"context"
	"database/sql"

	"loyalty-promo-backend/internal/features/txlog/models"
)

// Recorder appends audit rows. Record deliberately takes the caller's
// open *sql.Tx: a log row can only be written inside the same atomic
// unit as the mutation it documents, so a crash between the balance
// update and the log write is impossible by construction.
type Recorder interface {
	Record(ctx context.Context, tx *sql.Tx, entry models.Entry) error
}

// Reader serves the administrative reporting queries.
type Reader interface {
	Query(ctx context.Context, filters models.Filters, limit, offset int) ([]models.LogEntry, error)
}
