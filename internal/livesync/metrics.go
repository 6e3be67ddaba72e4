package livesync

import (
	"math"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// The per-cover revenue estimate stands in for real pricing data; replace
// it once an actual pricing signal exists.
const defaultRevenuePerCover = 35.0

// Projector computes the operational KPIs from one snapshot triple. Project
// is pure: identical inputs always yield identical output, and it is total
// over any well-formed snapshot, including all-empty.
type Projector struct {
	revenuePerCover float64
}

func NewProjector(revenuePerCover float64) Projector {
	if revenuePerCover <= 0 {
		revenuePerCover = defaultRevenuePerCover
	}

	return Projector{revenuePerCover: revenuePerCover}
}

func (p Projector) Project(bookings []domain.Booking, tables []domain.TableWithStatus, waitlist []domain.WaitlistEntry) domain.Metrics {
	var m domain.Metrics

	activeTables := make(map[string]bool)
	for _, b := range bookings {
		if b.Status.Active() {
			m.ActiveBookings++
			if b.TableID != "" {
				activeTables[b.TableID] = true
			}
		}

		if b.Status == domain.BookingCompleted {
			m.CoverCount += b.PartySize
		}
	}

	m.TotalRevenue = float64(m.CoverCount) * p.revenuePerCover

	for _, t := range tables {
		hasActive := activeTables[t.ID]
		if hasActive || t.Status == domain.TableOccupied {
			m.OccupiedTables++
		}
		if t.Status == domain.TableAvailable && !hasActive {
			m.AvailableTables++
		}
	}

	m.WaitlistCount = len(waitlist)
	if len(waitlist) > 0 {
		sum := 0
		for _, w := range waitlist {
			wait := w.EstimatedWaitMin
			if wait <= 0 {
				wait = defaultWaitMinutes
			}
			sum += wait
		}
		m.AvgWaitTime = int(math.Round(float64(sum) / float64(len(waitlist))))
	}

	if len(tables) > 0 {
		m.Turnover = math.Round(float64(m.CoverCount)/float64(len(tables))*100) / 100
	}

	return m
}
