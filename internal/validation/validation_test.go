package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() Registration {
	return Registration{
		Username:          "traveller",
		Name:              "Tara",
		Email:             "tara@example.com",
		Password:          "secret1",
		ConfirmedPassword: "secret1",
	}
}

func TestRegistrationValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Registration)
		field  string
	}{
		{"valid", func(*Registration) {}, ""},
		{"empty username", func(r *Registration) { r.Username = "   " }, "username"},
		{"username with space", func(r *Registration) { r.Username = "tara k" }, "username"},
		{"username with tab", func(r *Registration) { r.Username = "tara\tk" }, "username"},
		{"bad email", func(r *Registration) { r.Email = "tara@" }, "email"},
		{"email with dashes", func(r *Registration) { r.Email = "ta-ra@my-mail.co.in" }, ""},
		{"short password", func(r *Registration) { r.Password, r.ConfirmedPassword = "abc", "abc" }, "password"},
		{"padded short password", func(r *Registration) { r.Password, r.ConfirmedPassword = "  abc  ", "  abc  " }, "password"},
		{"mismatch", func(r *Registration) { r.ConfirmedPassword = "secret2" }, "confirmedPassword"},
		{"password over bcrypt limit", func(r *Registration) {
			r.Password = strings.Repeat("p", MaxPasswordLength+1)
			r.ConfirmedPassword = r.Password
		}, "password"},
		{"unknown role", func(r *Registration) { r.Role = "root" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegistration()
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCardValidate(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	valid := Card{Number: "4111 1111 1111 1111", Holder: "Tara", ExpMonth: "07", ExpYear: "2027", CVV: "123"}

	month, year, err := valid.Validate(now)
	require.NoError(t, err)
	assert.Equal(t, 7, month)
	assert.Equal(t, 2027, year)
	assert.Equal(t, "1111", valid.Last4())
	assert.Equal(t, "visa", valid.Brand())

	short := valid
	short.ExpYear = "27"
	_, year, err = short.Validate(now)
	require.NoError(t, err)
	assert.Equal(t, 2027, year)

	bad := []struct {
		name  string
		card  Card
		field string
	}{
		{"missing number", Card{Holder: "T", ExpMonth: "1", ExpYear: "2030", CVV: "123"}, "number"},
		{"letters in number", Card{Number: "4111abcd11111111", Holder: "T", ExpMonth: "1", ExpYear: "2030", CVV: "123"}, "number"},
		{"missing holder", Card{Number: "4111111111111111", ExpMonth: "1", ExpYear: "2030", CVV: "123"}, "name"},
		{"month 13", Card{Number: "4111111111111111", Holder: "T", ExpMonth: "13", ExpYear: "2030", CVV: "123"}, "expmonth"},
		{"three digit year", Card{Number: "4111111111111111", Holder: "T", ExpMonth: "1", ExpYear: "203", CVV: "123"}, "expyear"},
		{"expired", Card{Number: "4111111111111111", Holder: "T", ExpMonth: "5", ExpYear: "2026", CVV: "123"}, "expyear"},
		{"short cvv", Card{Number: "4111111111111111", Holder: "T", ExpMonth: "1", ExpYear: "2030", CVV: "12"}, "cvv"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.card.Validate(now)
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTripDates(t *testing.T) {
	assert.NoError(t, TripDates("", ""))
	assert.NoError(t, TripDates("2026-07-01", "2026-07-05"))
	assert.Error(t, TripDates("01/07/2026", ""))
	assert.Error(t, TripDates("2026-07-05", "2026-07-01"))
}
