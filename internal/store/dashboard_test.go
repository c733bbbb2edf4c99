package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-booking/internal/models"
)

func strPtr(s string) *string { return &s }

func served(name, status string, start time.Time, d time.Duration) models.Booking {
	end := start.Add(d)
	b := models.Booking{Status: status, StartedByName: strPtr(name), ActualStartTime: &start}
	if status == models.StatusCompleted {
		b.ActualEndTime = &end
	}
	return b
}

func TestComputeDashboard(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{Status: models.StatusWaiting},
		served("Sara", models.StatusInProgress, start, 0),
		served("Sara", models.StatusCompleted, start, 4*time.Minute),
		served("Sara", models.StatusCompleted, start, 6*time.Minute),
		served("Adam", models.StatusCompleted, start, 90*time.Second),
		served("Adam", models.StatusCancelled, start, 0),
	}

	stats := ComputeDashboard("2026-10-15", bookings)

	assert.Equal(t, 6, stats.TotalToday)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, 1, stats.Cancelled)

	require.Len(t, stats.EmployeeStats, 2)
	adam, sara := stats.EmployeeStats[0], stats.EmployeeStats[1]
	assert.Equal(t, "Adam", adam.Name)
	assert.Equal(t, 2, adam.Count)
	assert.Equal(t, 1, adam.Cancelled)
	assert.Equal(t, "00:01:30", adam.AverageTime)
	assert.Equal(t, "Sara", sara.Name)
	assert.Equal(t, 3, sara.Count)
	assert.Equal(t, 2, sara.Completed)
	assert.Equal(t, "00:05:00", sara.AverageTime)
	assert.Equal(t, "00:04:00", sara.MinTime)
	assert.Equal(t, "00:06:00", sara.MaxTime)

	require.NotNil(t, stats.TimeStats)
	assert.Equal(t, 3, stats.TimeStats.TotalCompleted)
	assert.Equal(t, "00:01:30", stats.TimeStats.Min)
	assert.Equal(t, "00:06:00", stats.TimeStats.Max)
	assert.Equal(t, "00:03:50", stats.TimeStats.Average)
}

func TestComputeDashboardEmptyDay(t *testing.T) {
	stats := ComputeDashboard("2026-10-15", nil)
	assert.Zero(t, stats.TotalToday)
	assert.Empty(t, stats.EmployeeStats)
	assert.Nil(t, stats.TimeStats)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "01:02:03", FormatDuration(time.Hour+2*time.Minute+3*time.Second+400*time.Millisecond))
	assert.Equal(t, "00:00:00", FormatDuration(-time.Second))
}

func TestResolveBookingDate(t *testing.T) {
	loc := time.FixedZone("AST", 3*3600)
	opts := Options{Location: loc, Now: func() time.Time {
		return time.Date(2026, 10, 15, 22, 30, 0, 0, time.UTC) // already the 16th in AST
	}}.WithDefaults()

	assert.Equal(t, "2026-10-16", opts.ResolveBookingDate(models.DateToday).Format(DateLayout))
	assert.Equal(t, "2026-10-17", opts.ResolveBookingDate(models.DateTomorrow).Format(DateLayout))
	assert.Equal(t, "2026-10-16", opts.ResolveBookingDate("").Format(DateLayout))
}
