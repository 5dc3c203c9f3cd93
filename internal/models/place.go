package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Place struct {
	ID        string          `json:"id" db:"id"`
	From      string          `json:"from" db:"origin"`
	To        string          `json:"to" db:"destination"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Details   string          `json:"details" db:"details"`
	Category  string          `json:"category" db:"category"`
	BusType   string          `json:"busType" db:"bus_type"`
	Days      string          `json:"days" db:"days"`
	Photo     string          `json:"photo,omitempty" db:"photo"`
	CreatedBy string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PlaceInput is the admin form for creating or replacing a place.
type PlaceInput struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Price    string `json:"price"`
	Details  string `json:"details"`
	Category string `json:"category"`
	BusType  string `json:"busType"`
	Days     string `json:"days"`
}
