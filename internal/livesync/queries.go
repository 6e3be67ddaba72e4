package livesync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
	"github.com/kirinyoku/floorsync/internal/repository"
)

const (
	maxFetchRetries    = 3
	maxWaitlistRetries = 1
	maxBackoff         = 30 * time.Second
	defaultWaitMinutes = 15
)

// Backend are the read operations the snapshot queries run against the
// data backend.
type Backend interface {
	BookingsBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error)
	ConfirmedBookingsBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Booking, error)
	ActiveTables(ctx context.Context, tenantID string) ([]domain.Table, error)
}

// Queries implements the three keyed snapshot fetches with per-entity retry
// policy. It satisfies the bus Fetchers contract.
type Queries struct {
	backend Backend
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewQueries(backend Backend, logger *slog.Logger) *Queries {
	return &Queries{
		backend: backend,
		logger:  logger,
		loc:     time.Local,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// FetchBookings retrieves today's bookings for the tenant, ordered by
// scheduled time ascending. Failures are retried with exponential backoff;
// authorization failures are terminal.
func (q *Queries) FetchBookings(ctx context.Context, tenantID string) ([]domain.Booking, error) {
	const op = "livesync.Queries.FetchBookings"

	from, to := q.dayBounds()

	var out []domain.Booking
	err := q.withRetry(ctx, op, maxFetchRetries, func(ctx context.Context) error {
		var err error
		out, err = q.backend.BookingsBetween(ctx, tenantID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// FetchTables retrieves the tenant's active tables ordered by name. Every
// row gets the derived default status before any booking correlation; the
// fetch itself never asserts occupancy.
func (q *Queries) FetchTables(ctx context.Context, tenantID string) ([]domain.TableWithStatus, error) {
	const op = "livesync.Queries.FetchTables"

	var rows []domain.Table
	err := q.withRetry(ctx, op, maxFetchRetries, func(ctx context.Context) error {
		var err error
		rows, err = q.backend.ActiveTables(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.TableWithStatus, 0, len(rows))
	for _, t := range rows {
		out = append(out, domain.TableWithStatus{
			Table:  t,
			Status: domain.TableAvailable,
		})
	}

	return out, nil
}

// FetchWaitlist builds the waitlist proxy from confirmed bookings. It is
// best effort: any failure past the single retry degrades to an empty list,
// except authorization failures, which stay terminal.
func (q *Queries) FetchWaitlist(ctx context.Context, tenantID string) ([]domain.WaitlistEntry, error) {
	const op = "livesync.Queries.FetchWaitlist"

	from, to := q.dayBounds()

	var rows []domain.Booking
	err := q.withRetry(ctx, op, maxWaitlistRetries, func(ctx context.Context) error {
		var err error
		rows, err = q.backend.ConfirmedBookingsBetween(ctx, tenantID, from, to)
		return err
	})
	if err != nil {
		if IsAuthError(err) {
			return nil, err
		}
		q.logger.Warn("waitlist fetch degraded to empty", "tenant_id", tenantID, "error", err)
		return nil, nil
	}

	now := q.now()
	out := make([]domain.WaitlistEntry, 0, len(rows))
	for _, b := range rows {
		out = append(out, domain.WaitlistEntry{
			BookingID:        b.ID,
			GuestName:        b.GuestName,
			GuestPhone:       b.GuestPhone,
			PartySize:        b.PartySize,
			ScheduledAt:      b.ScheduledAt,
			EstimatedWaitMin: estimatedWait(b.ScheduledAt, now),
		})
	}

	return out, nil
}

// estimatedWait is the minutes until the scheduled time, defaulting when
// the slot is due or past.
func estimatedWait(scheduledAt, now time.Time) int {
	mins := int(scheduledAt.Sub(now).Minutes())
	if mins <= 0 {
		return defaultWaitMinutes
	}

	return mins
}

func (q *Queries) dayBounds() (time.Time, time.Time) {
	now := q.now().In(q.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, q.loc)

	return start, start.AddDate(0, 0, 1)
}

func (q *Queries) withRetry(ctx context.Context, op string, maxRetries int, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		if IsAuthError(err) || attempt >= maxRetries {
			return err
		}

		delay := backoffDelay(attempt)
		q.logger.Warn("fetch failed, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)

		if serr := q.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// backoffDelay grows 1s, 2s, 4s, ... capped at maxBackoff.
func backoffDelay(attempt int) time.Duration {
	d := time.Second << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}

	return d
}

// IsAuthError reports whether the fetch failed on authorization. Such
// failures are never retried; they are terminal for the attempt and
// surfaced to the consumer.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repository.ErrUnauthorized) {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "auth") ||
		strings.Contains(msg, "jwt")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
