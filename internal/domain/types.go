package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no lifecycle event can leave s, except cancel on confirmed.
func (s BookingStatus) Terminal() bool {
	return s == BookingRejected || s == BookingCancelled
}

// Event is the singleton the tiers belong to.
type Event struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Location            string    `json:"location"`
	Starts              time.Time `json:"starts_at"`
	Ends                time.Time `json:"ends_at"`
	Currency            string    `json:"currency"`
	PaymentInstructions string    `json:"payment_instructions"`
}

// TicketTier is a purchasable ticket category. Prices are minor currency units.
type TicketTier struct {
	ID                 int64     `json:"id"`
	EventID            int64     `json:"event_id"`
	Name               string    `json:"name"`
	PriceCents         int64     `json:"price_cents"`
	DiscountPriceCents int64     `json:"discount_price_cents"`
	DiscountEndsAt     time.Time `json:"discount_ends_at"`
	Capacity           int       `json:"capacity"`
	Sold               int       `json:"sold"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type TierAvailability struct {
	TierID    int64 `json:"tier_id"`
	Capacity  int   `json:"capacity"`
	Sold      int   `json:"sold"`
	Remaining int   `json:"remaining"`
}

// Availability derives the display counters of the tier.
func (t TicketTier) Availability() TierAvailability {
	remaining := t.Capacity - t.Sold
	if remaining < 0 {
		remaining = 0
	}
	return TierAvailability{
		TierID:    t.ID,
		Capacity:  t.Capacity,
		Sold:      t.Sold,
		Remaining: remaining,
	}
}

type Buyer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	StudentID  string `json:"student_id,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	Buyer           Buyer         `json:"buyer"`
	TierID          int64         `json:"tier_id"`
	Quantity        int           `json:"quantity"`
	UnitPriceCents  *int64        `json:"unit_price_cents,omitempty"`
	PaymentRef      string        `json:"payment_ref"`
	PaymentProofURL string        `json:"payment_proof_url"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
}

// TotalCents is the charged total, zero until the booking is confirmed.
func (b Booking) TotalCents() int64 {
	if b.UnitPriceCents == nil {
		return 0
	}
	return *b.UnitPriceCents * int64(b.Quantity)
}

type EventWithTiers struct {
	Event Event        `json:"event"`
	Tiers []TicketTier `json:"tiers"`
}

// TierBookingStats aggregates booked quantities of a tier by status.
type TierBookingStats struct {
	TierID    int64                 `json:"tier_id"`
	Quantity  map[BookingStatus]int `json:"quantity"`
	Bookings  map[BookingStatus]int `json:"bookings"`
	Available TierAvailability      `json:"availability"`
}

// TierUpdate carries the optional fields of a tier edit; nil leaves a field unchanged.
type TierUpdate struct {
	Name               *string
	PriceCents         *int64
	DiscountPriceCents *int64
	DiscountEndsAt     *time.Time
	Capacity           *int
	Active             *bool
}
