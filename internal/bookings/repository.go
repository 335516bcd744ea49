package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/photka-support-ai/internal/events"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides persistence helpers for bookings.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

// CreateRequest inserts a booking row and its booking.update outbox event in one transaction.
func (r *Repository) CreateRequest(ctx context.Context, userID string, in Intent) (*BookingRequest, error) {
	row := &BookingRequest{
		ID:          uuid.New(),
		UserID:      userID,
		SessionType: in.SessionType,
		Status:      in.Status(),
		DurationMin: defaultDurationMin,
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bookings (id, user_id, session_type, status, duration_min)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query, row.ID, userID, string(in.SessionType), row.Status, row.DurationMin).Scan(&row.CreatedAt); err != nil {
		return nil, fmt.Errorf("bookings: insert request: %w", err)
	}

	update := events.BookingUpdateV1{
		BookingID:   row.ID.String(),
		SessionType: string(row.SessionType),
		Status:      row.Status,
		OccurredAt:  row.CreatedAt,
	}
	if _, err := events.WriteOutbox(ctx, tx, userID, events.TopicBookingUpdate, update); err != nil {
		return nil, fmt.Errorf("bookings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit: %w", err)
	}
	return row, nil
}

// HasPendingInstant reports whether userID has a requested instant booking created at or after since.
func (r *Repository) HasPendingInstant(ctx context.Context, userID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND status = $2 AND created_at >= $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, StatusRequested, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("bookings: check pending instant: %w", err)
	}
	return exists, nil
}
