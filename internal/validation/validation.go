// Package validation holds input checks shared by the HTTP server and the Go
// client, so both reject the same registration and payment forms.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"travelbook/internal/models"
)

const (
	// MinPasswordLength is counted after trimming surrounding whitespace.
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72

	// MaxTravellers caps adults plus children on one trip.
	MaxTravellers = 50
)

var emailPattern = regexp.MustCompile(`^\w+([-]?\w+)*@\w+([-]?\w+)*(\.\w{2,3})+$`)

// Error describes a single rejected field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, msg string) *Error {
	return &Error{Field: field, Message: msg}
}

// Registration is the account form used by self-registration and by admins.
type Registration struct {
	Username          string `json:"username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	ConfirmedPassword string `json:"confirmedPassword"`
	Gender            string `json:"gender"`
	Phone             string `json:"phonenumber"`
	Role              string `json:"role,omitempty"`
}

// Validate applies the checks in order and reports the first failure.
func (r Registration) Validate() error {
	if err := Username(r.Username); err != nil {
		return err
	}
	if err := Email(r.Email); err != nil {
		return err
	}
	if err := Password(r.Password); err != nil {
		return err
	}
	if r.Password != r.ConfirmedPassword {
		return fieldError("confirmedPassword", "passwords are not matching")
	}
	if r.Role != "" && r.Role != models.RoleUser && r.Role != models.RoleAdmin {
		return fieldError("role", "unknown role")
	}
	return nil
}

// Username rejects empty names and names containing any whitespace.
func Username(s string) error {
	if strings.TrimSpace(s) == "" {
		return fieldError("username", "username is required")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fieldError("username", "username should not contain spaces")
	}
	return nil
}

func Email(s string) error {
	if strings.TrimSpace(s) == "" || !emailPattern.MatchString(s) {
		return fieldError("email", "invalid email")
	}
	return nil
}

func Password(s string) error {
	if len(strings.TrimSpace(s)) < MinPasswordLength {
		return fieldError("password", fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}
	if len(s) > MaxPasswordLength {
		return fieldError("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}
	return nil
}

// Card is the payment form submitted at checkout.
type Card struct {
	Number   string `json:"number"`
	Holder   string `json:"name"`
	ExpMonth string `json:"expmonth"`
	ExpYear  string `json:"expyear"`
	CVV      string `json:"cvv"`
}

// Validate checks presence and shape of every card field and returns the
// parsed expiry. Expired cards are rejected relative to now.
func (c Card) Validate(now time.Time) (month, year int, err error) {
	number := normalizeCardNumber(c.Number)
	switch {
	case number == "":
		return 0, 0, fieldError("number", "card number is required")
	case !isDigits(number) || len(number) < 12 || len(number) > 19:
		return 0, 0, fieldError("number", "card number must be 12-19 digits")
	}
	if strings.TrimSpace(c.Holder) == "" {
		return 0, 0, fieldError("name", "card holder is required")
	}

	month, err = strconv.Atoi(strings.TrimSpace(c.ExpMonth))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fieldError("expmonth", "expiry month must be 1-12")
	}

	yearStr := strings.TrimSpace(c.ExpYear)
	year, err = strconv.Atoi(yearStr)
	if err != nil || (len(yearStr) != 2 && len(yearStr) != 4) {
		return 0, 0, fieldError("expyear", "expiry year must have 2 or 4 digits")
	}
	if len(yearStr) == 2 {
		year += 2000
	}
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return 0, 0, fieldError("expyear", "card is expired")
	}

	cvv := strings.TrimSpace(c.CVV)
	if !isDigits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		return 0, 0, fieldError("cvv", "cvv must be 3 or 4 digits")
	}
	return month, year, nil
}

// Last4 returns the trailing four digits of the normalized card number.
func (c Card) Last4() string {
	n := normalizeCardNumber(c.Number)
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}

// Brand guesses the card network from the leading digits.
func (c Card) Brand() string {
	n := normalizeCardNumber(c.Number)
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case len(n) >= 2 && n[0] == '5' && n[1] >= '1' && n[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return "amex"
	case strings.HasPrefix(n, "6"):
		return "rupay"
	default:
		return "card"
	}
}

// TripDates checks the optional depart/arrival pair of a cart item.
func TripDates(depart, arrival string) error {
	var d, a time.Time
	var err error
	if depart != "" {
		if d, err = time.Parse(models.DateLayout, depart); err != nil {
			return fieldError("depart", "date must be YYYY-MM-DD")
		}
	}
	if arrival != "" {
		if a, err = time.Parse(models.DateLayout, arrival); err != nil {
			return fieldError("arrival", "date must be YYYY-MM-DD")
		}
	}
	if !d.IsZero() && !a.IsZero() && a.Before(d) {
		return fieldError("arrival", "arrival is before departure")
	}
	return nil
}

func normalizeCardNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
