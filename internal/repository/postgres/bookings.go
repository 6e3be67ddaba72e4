package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/floorsync/internal/domain"
)

type BookingsRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingsRepo) With(db DB) *BookingsRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingsRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, tenant_id, guest_name, guest_email, guest_phone,
	 party_size, scheduled_at, duration_min, status, table_id,
	 special_requests, created_at, updated_at`

// Between retrieves a tenant's bookings scheduled inside [from, to),
// ordered by scheduled time ascending.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - tenantID: tenant the bookings belong to.
//   - from, to: scheduling window, typically one local day.
//
// Returns:
//   - []domain.Booking: bookings in the window, possibly empty.
//   - error: repository.ErrUnauthorized on a backend authorization failure.
func (r *BookingsRepo) Between(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error) {
	const op = "postgres.BookingsRepo.Between"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE tenant_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		 ORDER BY scheduled_at ASC`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	return scanBookings(op, rows)
}

// ConfirmedBetween retrieves only confirmed bookings in the window. This is
// the waitlist proxy: there is no dedicated waitlist store.
func (r *BookingsRepo) ConfirmedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error) {
	const op = "postgres.BookingsRepo.ConfirmedBetween"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE tenant_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		   AND status = 'confirmed'
		 ORDER BY scheduled_at ASC`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	return scanBookings(op, rows)
}

func scanBookings(op string, rows pgx.Rows) ([]domain.Booking, error) {
	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		var email, phone, tableID, requests *string
		if err := rows.Scan(
			&b.ID, &b.TenantID, &b.GuestName, &email, &phone,
			&b.PartySize, &b.ScheduledAt, &b.DurationMin, &b.Status, &tableID,
			&requests, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		if email != nil {
			b.GuestEmail = *email
		}
		if phone != nil {
			b.GuestPhone = *phone
		}
		if tableID != nil {
			b.TableID = *tableID
		}
		if requests != nil {
			b.SpecialRequests = *requests
		}

		out = append(out, b)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
