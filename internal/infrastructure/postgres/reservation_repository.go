package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-reservation-service/internal/domain/reservation"
)

type reservationRow struct {
	ID          string     `db:"id"`
	EventID     int64      `db:"event_id"`
	UserID      string     `db:"user_id"`
	UserName    string     `db:"user_name"`
	UserEmail   string     `db:"user_email"`
	Seats       int        `db:"seats"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
}

const reservationColumns = `id, event_id, user_id, user_name, user_email, seats, status, created_at, cancelled_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	query := `INSERT INTO reservations (event_id, user_id, user_name, user_email, seats, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		res.EventID, res.UserID, res.UserName, res.UserEmail, res.Seats, string(res.Status), res.CreatedAt,
	).Scan(&res.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return toEntity(&row), nil
}

func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *ReservationRepository) GetAll(ctx context.Context) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	query := `UPDATE reservations SET status = $1, cancelled_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(res.Status), res.CancelledAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func toEntity(row *reservationRow) *reservation.Reservation {
	return &reservation.Reservation{
		ID:          row.ID,
		EventID:     row.EventID,
		UserID:      row.UserID,
		UserName:    row.UserName,
		UserEmail:   row.UserEmail,
		Seats:       row.Seats,
		Status:      reservation.Status(row.Status),
		CreatedAt:   row.CreatedAt,
		CancelledAt: row.CancelledAt,
	}
}

func toEntities(rows []reservationRow) []*reservation.Reservation {
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = toEntity(&rows[i])
	}
	return result
}

var _ reservation.Repository = (*ReservationRepository)(nil)
