package domain

import (
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingSeated    BookingStatus = "seated"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

// Active reports whether the booking currently ties up a table.
func (s BookingStatus) Active() bool {
	return s == BookingConfirmed || s == BookingSeated
}

// TableStatus is the derived occupancy view of a table. It is computed by
// correlating tables against in-flight bookings and is never written back
// to the backend.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// Entity identifies one change-notification channel / snapshot class.
type Entity string

const (
	EntityBookings Entity = "bookings"
	EntityTables   Entity = "tables"
	EntityWaitlist Entity = "waitlist"
)

// Entities lists the three synced entity classes in a stable order.
func Entities() []Entity {
	return []Entity{EntityBookings, EntityTables, EntityWaitlist}
}

type Booking struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenant_id"`
	GuestName       string        `json:"guest_name"`
	GuestEmail      string        `json:"guest_email,omitempty"`
	GuestPhone      string        `json:"guest_phone,omitempty"`
	PartySize       int           `json:"party_size"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMin     int           `json:"duration_min"`
	Status          BookingStatus `json:"status"`
	TableID         string        `json:"table_id,omitempty"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Table is the stored base row as the backend returns it. Occupancy lives
// on TableWithStatus only.
type Table struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
	Type     string  `json:"type,omitempty"`
	Active   bool    `json:"active"`
}

type TableWithStatus struct {
	Table
	Status TableStatus `json:"status"`
}

// WaitlistEntry is proxied from confirmed bookings; there is no dedicated
// waitlist store.
type WaitlistEntry struct {
	BookingID        string    `json:"booking_id"`
	GuestName        string    `json:"guest_name"`
	GuestPhone       string    `json:"guest_phone,omitempty"`
	PartySize        int       `json:"party_size"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	EstimatedWaitMin int       `json:"estimated_wait_min"`
}

// Metrics are the operational KPIs projected from one snapshot generation.
type Metrics struct {
	ActiveBookings  int     `json:"active_bookings"`
	OccupiedTables  int     `json:"occupied_tables"`
	AvailableTables int     `json:"available_tables"`
	WaitlistCount   int     `json:"waitlist_count"`
	AvgWaitTime     int     `json:"avg_wait_time"`
	TotalRevenue    float64 `json:"total_revenue"`
	CoverCount      int     `json:"cover_count"`
	Turnover        float64 `json:"turnover"`
}

// ConnectionSnapshot is the per-channel connectivity plus the aggregated
// overall status shown to the user.
type ConnectionSnapshot struct {
	Bookings ConnectionStatus `json:"bookings"`
	Tables   ConnectionStatus `json:"tables"`
	Waitlist ConnectionStatus `json:"waitlist"`
	Overall  ConnectionStatus `json:"overall"`
}

// DashboardState is everything a UI consumer receives. All three entity
// slices come from the same snapshot generation.
type DashboardState struct {
	Bookings         []Booking          `json:"bookings"`
	Tables           []TableWithStatus  `json:"tables"`
	Waitlist         []WaitlistEntry    `json:"waitlist"`
	Metrics          Metrics            `json:"metrics"`
	IsLoading        bool               `json:"is_loading"`
	Error            string             `json:"error,omitempty"`
	ConnectionStatus ConnectionSnapshot `json:"connection_status"`
	IsConnected      bool               `json:"is_connected"`
	LastUpdate       time.Time          `json:"last_update"`
}
