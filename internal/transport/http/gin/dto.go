package httpgin

import (
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/catalog"
)

type CreateBookingRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	StudentID       string `json:"student_id"`
	Occupation      string `json:"occupation"`
	TierID          int64  `json:"tier_id"`
	Quantity        int    `json:"quantity"`
	PaymentRef      string `json:"payment_ref"`
	PaymentProofURL string `json:"payment_proof_url"`
}

func (r CreateBookingRequest) toInput() booking.CreateBookingInput {
	return booking.CreateBookingInput{
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		StudentID:       r.StudentID,
		Occupation:      r.Occupation,
		TierID:          r.TierID,
		Quantity:        r.Quantity,
		PaymentRef:      r.PaymentRef,
		PaymentProofURL: r.PaymentProofURL,
	}
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpsertEventRequest struct {
	Name                string `json:"name" binding:"required"`
	Location            string `json:"location"`
	StartsAt            string `json:"starts_at" binding:"required"`
	EndsAt              string `json:"ends_at" binding:"required"`
	Currency            string `json:"currency" binding:"required"`
	PaymentInstructions string `json:"payment_instructions"`
}

func (r UpsertEventRequest) toInput() (catalog.EventInput, error) {
	starts, err := parseRFC3339(r.StartsAt)
	if err != nil {
		return catalog.EventInput{}, err
	}

	ends, err := parseRFC3339(r.EndsAt)
	if err != nil {
		return catalog.EventInput{}, err
	}

	return catalog.EventInput{
		Name:                r.Name,
		Location:            r.Location,
		Starts:              starts,
		Ends:                ends,
		Currency:            r.Currency,
		PaymentInstructions: r.PaymentInstructions,
	}, nil
}

type CreateTierRequest struct {
	Name               string `json:"name" binding:"required"`
	PriceCents         int64  `json:"price_cents"`
	DiscountPriceCents int64  `json:"discount_price_cents"`
	DiscountEndsAt     string `json:"discount_ends_at"`
	Capacity           int    `json:"capacity" binding:"required"`
	Active             *bool  `json:"active"`
}

func (r CreateTierRequest) toInput() (catalog.TierInput, error) {
	in := catalog.TierInput{
		Name:               r.Name,
		PriceCents:         r.PriceCents,
		DiscountPriceCents: r.DiscountPriceCents,
		Capacity:           r.Capacity,
		Active:             true,
	}

	if r.Active != nil {
		in.Active = *r.Active
	}

	if r.DiscountEndsAt != "" {
		t, err := parseRFC3339(r.DiscountEndsAt)
		if err != nil {
			return catalog.TierInput{}, err
		}
		in.DiscountEndsAt = t
	}

	return in, nil
}

// UpdateTierRequest carries a partial tier edit. ClearDiscount removes the discount window.
type UpdateTierRequest struct {
	Name               *string `json:"name"`
	PriceCents         *int64  `json:"price_cents"`
	DiscountPriceCents *int64  `json:"discount_price_cents"`
	DiscountEndsAt     *string `json:"discount_ends_at"`
	ClearDiscount      bool    `json:"clear_discount"`
	Capacity           *int    `json:"capacity"`
	Active             *bool   `json:"active"`
}

func (r UpdateTierRequest) toUpdate() (domain.TierUpdate, error) {
	u := domain.TierUpdate{
		Name:               r.Name,
		PriceCents:         r.PriceCents,
		DiscountPriceCents: r.DiscountPriceCents,
		Capacity:           r.Capacity,
		Active:             r.Active,
	}

	switch {
	case r.ClearDiscount:
		u.DiscountEndsAt = &time.Time{}
	case r.DiscountEndsAt != nil:
		t, err := parseRFC3339(*r.DiscountEndsAt)
		if err != nil {
			return domain.TierUpdate{}, err
		}
		u.DiscountEndsAt = &t
	}

	return u, nil
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type PriceResponse struct {
	TierID         int64     `json:"tier_id"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	QuotedAt       time.Time `json:"quoted_at"`
}

type UploadProofResponse struct {
	URL string `json:"url"`
}

type UpsertEventResponse struct {
	EventID int64 `json:"event_id"`
}

type CreateTierResponse struct {
	TierID int64 `json:"tier_id"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
