package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID        string          `json:"id" db:"id"`
	Username  string          `json:"username" db:"username"`
	PlaceID   string          `json:"place_id" db:"place_id"`
	From      string          `json:"from" db:"origin"`
	To        string          `json:"to" db:"destination"`
	Adults    int             `json:"adult" db:"adults"`
	Children  int             `json:"child" db:"children"`
	Depart    string          `json:"depart" db:"depart_date"`
	Arrival   string          `json:"arrival" db:"arrival_date"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Payment never carries the full card number or the CVV.
type Payment struct {
	ID         string          `json:"id" db:"id"`
	BookingID  string          `json:"booking_id" db:"booking_id"`
	Username   string          `json:"username" db:"username"`
	CardHolder string          `json:"name" db:"card_holder"`
	CardLast4  string          `json:"card_last4" db:"card_last4"`
	CardBrand  string          `json:"card_brand" db:"card_brand"`
	ExpMonth   int             `json:"expmonth" db:"exp_month"`
	ExpYear    int             `json:"expyear" db:"exp_year"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Transaction joins a booking with its payment.
type Transaction struct {
	BookingID  string          `json:"booking_id" db:"booking_id"`
	PaymentID  string          `json:"payment_id" db:"payment_id"`
	Username   string          `json:"username" db:"username"`
	From       string          `json:"from" db:"origin"`
	To         string          `json:"to" db:"destination"`
	Depart     string          `json:"depart" db:"depart_date"`
	CardHolder string          `json:"name" db:"card_holder"`
	CardLast4  string          `json:"card_last4" db:"card_last4"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Status     string          `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
