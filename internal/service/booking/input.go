package booking

import (
	"strings"

	"github.com/kirinyoku/tix-booking/internal/validation"
)

// CreateBookingInput is a buyer submission. It is normalized and validated once by
// CreateBooking; the lifecycle only ever sees the resulting domain.Booking.
type CreateBookingInput struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Phone           string `json:"phone" validate:"required,min=7,max=20"`
	StudentID       string `json:"student_id" validate:"max=64"`
	Occupation      string `json:"occupation" validate:"max=120"`
	TierID          int64  `json:"tier_id" validate:"required,gt=0"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	PaymentRef      string `json:"payment_ref" validate:"required,max=64"`
	PaymentProofURL string `json:"payment_proof_url" validate:"required,url,max=2048"`
}

func (in *CreateBookingInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Occupation = strings.TrimSpace(in.Occupation)
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	in.PaymentProofURL = strings.TrimSpace(in.PaymentProofURL)
}

// validationError turns the first validator failure into a ValidationError.
func validationError(err error) error {
	field, reason := validation.FirstFailure(err)
	return ValidationError{Field: field, Reason: reason}
}
