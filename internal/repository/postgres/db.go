package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// DB is the subset of pgx the read-side repositories need. The sync core
// never writes; snapshot queries are plain reads against the backend schema.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool     *pgxpool.Pool
	bookings *BookingsRepo
	tables   *TablesRepo
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		bookings: &BookingsRepo{pool: pool},
		tables:   &TablesRepo{pool: pool},
	}
}

func (s *Store) Bookings() *BookingsRepo {
	return s.bookings
}

func (s *Store) Tables() *TablesRepo {
	return s.tables
}

// BookingsBetween implements the livesync backend contract.
func (s *Store) BookingsBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error) {
	return s.bookings.Between(ctx, tenantID, from, to)
}

// ConfirmedBookingsBetween implements the livesync backend contract for the
// waitlist proxy.
func (s *Store) ConfirmedBookingsBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error) {
	return s.bookings.ConfirmedBetween(ctx, tenantID, from, to)
}

// ActiveTables implements the livesync backend contract.
func (s *Store) ActiveTables(ctx context.Context, tenantID string) ([]domain.Table, error) {
	return s.tables.Active(ctx, tenantID)
}
