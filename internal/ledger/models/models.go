package models

import (
	"time"

	"tuition/pkg/validation"
)

// Payment is a recorded payment. UserID is whatever the caller submitted;
// the ledger does not know whether such a user exists.
type Payment struct {
	ID        int64
	UserID    int64
	Amount    float64
	CreatedAt time.Time
}

// CreatePaymentRequest is the body of POST {base}/payment. Pointers tell a
// missing field apart from an explicit zero.
type CreatePaymentRequest struct {
	UserID *int64   `json:"userId" validate:"required"`
	Amount *float64 `json:"amount" validate:"required"`
}

func (r *CreatePaymentRequest) Validate() error {
	return validation.Validate(r)
}

// ListFilter narrows a payment listing. A nil UserID lists every payment.
type ListFilter struct {
	UserID *int64
}

// PaymentResponse is the wire view of a payment.
type PaymentResponse struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"userId"`
	Amount float64 `json:"amount"`
}

func ToResponse(p *Payment) PaymentResponse {
	return PaymentResponse{ID: p.ID, UserID: p.UserID, Amount: p.Amount}
}

func ToResponses(payments []*Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToResponse(p))
	}
	return out
}
