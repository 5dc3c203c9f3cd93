package export

import (
	"path/filepath"
	"testing"
	"time"

	"travelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportBookings(t *testing.T) {
	logger := zerolog.Nop()
	exp := NewExporter(filepath.Join(t.TempDir(), "exports"), &logger)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{ID: "b-1", Username: "alice", From: "Chennai", To: "Goa", Adults: 2, Amount: decimal.RequireFromString("3000.50"), Status: models.StatusConfirmed, CreatedAt: start.Add(time.Hour)},
		{ID: "b-2", Username: "bob", From: "Delhi", To: "Manali", Adults: 1, Children: 1, Amount: decimal.RequireFromString("1200"), Status: models.StatusConfirmed, CreatedAt: start.Add(48 * time.Hour)},
	}

	path, err := exp.ExportBookings(start, end, bookings)
	require.NoError(t, err)
	assert.Equal(t, "bookings_2026-01-01_to_2026-02-01.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Period: 2026-01-01 - 2026-02-01", rows[0][0])
	assert.Equal(t, headers, rows[1])
	assert.Equal(t, "b-1", rows[2][0])
	assert.Equal(t, "alice", rows[2][2])
	assert.Equal(t, "Manali", rows[3][4])

	formula, err := f.GetCellFormula(sheetName, "J5")
	require.NoError(t, err)
	assert.Equal(t, "SUM(J3:J4)", formula)
}

func TestBuild_Empty(t *testing.T) {
	f, err := Build(time.Now(), time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
