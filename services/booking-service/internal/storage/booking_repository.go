package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/consultbook/libs/db"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/reservations"
)

const bookingColumns = `
	id::text, resource_id::text, COALESCE(customer_id, ''), customer_name, title,
	start_time, end_time, state, consulting_type, COALESCE(order_id, ''),
	COALESCE(notes, ''), COALESCE(cancellation_notes, ''), created_at, updated_at`

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

// WithinTx runs fn in one transaction; the booking rows and their outbox events
// commit or roll back together.
func (r *BookingRepository) WithinTx(ctx context.Context, fn func(reservations.Tx) error) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&bookingTx{tx: tx, outbox: r.outbox})
	})
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, r.pool, id, false)
}

func (r *BookingRepository) ListConfirmedBookings(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	return listConfirmedBookings(ctx, r.pool, resourceID, from, to)
}

type bookingTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *bookingTx) GetResource(ctx context.Context, id string) (model.Resource, error) {
	return getResource(ctx, t.tx, id)
}

func (t *bookingTx) ListConfirmedBookings(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	return listConfirmedBookings(ctx, t.tx, resourceID, from, to)
}

func (t *bookingTx) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *bookingTx) CreateBooking(ctx context.Context, b model.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings
			(id, resource_id, customer_id, customer_name, title, start_time, end_time, state,
			 consulting_type, order_id, notes, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13)
	`, b.ID, b.ResourceID, b.CustomerID, b.CustomerName, b.Title, b.Start, b.End, b.State,
		b.ConsultingType, b.OrderID, b.Notes, b.CreatedAt, b.UpdatedAt)
	return classifyWrite("insert booking", err)
}

func (t *bookingTx) UpdateBooking(ctx context.Context, b model.Booking) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET title = $2,
			start_time = $3,
			end_time = $4,
			state = $5,
			cancellation_notes = NULLIF($6, ''),
			updated_at = $7
		WHERE id = $1
	`, b.ID, b.Title, b.Start, b.End, b.State, b.CancellationNotes, b.UpdatedAt)
	if err != nil {
		return classifyWrite("update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, apperr.ErrNotFound)
	}
	return nil
}

func (t *bookingTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func classifyWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) {
		return fmt.Errorf("%s: %w", op, apperr.ErrSlotUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func getBooking(ctx context.Context, q querier, id string, forUpdate bool) (model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if err != nil {
		if IsNotFound(err) || IsMalformedID(err) {
			return model.Booking{}, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
		}
		return model.Booking{}, err
	}
	return b, nil
}

func listConfirmedBookings(ctx context.Context, q querier, resourceID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE resource_id = $1
			AND state = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, resourceID, from, to)
	if err != nil {
		if IsMalformedID(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&b.CustomerID,
		&b.CustomerName,
		&b.Title,
		&b.Start,
		&b.End,
		&b.State,
		&b.ConsultingType,
		&b.OrderID,
		&b.Notes,
		&b.CancellationNotes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Start, b.End = b.Start.UTC(), b.End.UTC()
	return b, nil
}
