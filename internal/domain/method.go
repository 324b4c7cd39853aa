package domain

import "time"

type MethodType string

const (
	MethodMpesa    MethodType = "mpesa"
	MethodTigoPesa MethodType = "tigopesa"
)

// PaymentMethod is a destination account published by staff for receiving
// out-of-band mobile-money transfers.
type PaymentMethod struct {
	ID          string     `json:"id"`
	Type        MethodType `json:"type"`
	Account     string     `json:"account"`
	DisplayName string     `json:"display_name"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
