package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CategoryAll selects every place regardless of category.
const CategoryAll = "all"

// Categories is the closed set of place categories.
var Categories = []string{
	"beach",
	"island",
	"countryside",
	"desert",
	"forest",
	"cultural",
	"winter",
	"hillstation",
}

var (
	BusTypes = []string{"AC", "NON-AC", "Both"}
	TripDays = []string{"Three", "Five", "Both"}
)

// DateLayout формат дат поездки в корзине и заказах
const DateLayout = "2006-01-02"

const (
	// DefaultCartTTL время жизни корзины в Redis
	DefaultCartTTL = 72 * time.Hour

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000
)

func IsCategory(s string) bool { return contains(Categories, s) }

func IsBusType(s string) bool { return contains(BusTypes, s) }

func IsTripDays(s string) bool { return contains(TripDays, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
