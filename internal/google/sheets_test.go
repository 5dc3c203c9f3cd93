package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	logger := zerolog.Nop()
	return mux, newSheetsService(srv, "ledger_tid", "Bookings", &logger)
}

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:        id,
		Username:  "alice",
		PlaceID:   "p-1",
		From:      "Chennai",
		To:        "Goa",
		Adults:    2,
		Amount:    decimal.RequireFromString("3001"),
		Status:    models.StatusConfirmed,
		CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"b-123"}, {}, {"b-456"}},
		})
	})
	require.NoError(t, s.WarmUpCache(context.Background()))

	row, ok := s.getCachedRow("b-123")
	assert.True(t, ok)
	assert.Equal(t, 2, row)
	row, _ = s.getCachedRow("b-456")
	assert.Equal(t, 4, row)
	_, ok = s.getCachedRow("ID")
	assert.False(t, ok)
}

func TestSheetsService_UpsertAppendsUnknownBooking(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})

	var appended sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&appended)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:L10"},
		})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), testBooking("b-789")))

	require.Len(t, appended.Values, 1)
	assert.Equal(t, "b-789", appended.Values[0][0])
	assert.Equal(t, "3001.00", appended.Values[0][10])

	row, _ := s.getCachedRow("b-789")
	assert.Equal(t, 10, row)
}

func TestSheetsService_UpsertUpdatesCachedRow(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-123", 2)

	called := false
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A2:L2", func(w http.ResponseWriter, r *http.Request) {
		called = r.Method == http.MethodPut
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), testBooking("b-123")))
	assert.True(t, called)
	assert.Error(t, s.UpsertBooking(context.Background(), nil))
}

func TestSheetsService_DeleteBookingRow(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-456", 3)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A3:L3:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})

	require.NoError(t, s.DeleteBookingRow(context.Background(), "b-456"))
	_, ok := s.getCachedRow("b-456")
	assert.False(t, ok)
}

func TestSheetsService_FindBookingRowMissing(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"other"}}})
	})

	_, err := s.FindBookingRow(context.Background(), "b-1")
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, err = s.FindBookingRow(context.Background(), "")
	assert.Error(t, err)
}

func TestSheetsService_EnsureHeader(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{})
	})
	var written sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A1:L1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&written)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.EnsureHeader(context.Background()))
	require.Len(t, written.Values, 1)
	assert.Equal(t, "ID", written.Values[0][0])
	assert.Len(t, written.Values[0], len(bookingHeaders))
}

func TestRowFromRange(t *testing.T) {
	assert.Equal(t, 10, rowFromRange("Bookings!A10:L10"))
	assert.Equal(t, 3, rowFromRange("'My Sheet'!A3"))
	assert.Equal(t, 0, rowFromRange("garbage"))
}
