package models

import "time"

// CartItem is a prospective trip. Key is assigned when the item is added
// and stays stable until the item is removed or checked out.
type CartItem struct {
	Key      string    `json:"key"`
	PlaceID  string    `json:"place_id,omitempty"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Adults   int       `json:"adult"`
	Children int       `json:"child"`
	Depart   string    `json:"depart,omitempty"`
	Arrival  string    `json:"arrival,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}
