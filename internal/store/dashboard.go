package store

import (
	"fmt"
	"sort"
	"time"

	"backend-booking/internal/models"
)

type durationStats struct {
	total, min, max time.Duration
	n               int
}

func (d *durationStats) add(v time.Duration) {
	if d.n == 0 || v < d.min {
		d.min = v
	}
	if v > d.max {
		d.max = v
	}
	d.total += v
	d.n++
}

func (d durationStats) average() time.Duration {
	if d.n == 0 {
		return 0
	}
	return d.total / time.Duration(d.n)
}

// ComputeDashboard aggregates one day of bookings into dashboard figures.
// Employee rows are keyed by the name of the staff member who started the
// booking and sorted by name.
func ComputeDashboard(date string, bookings []models.Booking) models.DashboardStats {
	stats := models.DashboardStats{Date: date, EmployeeStats: []models.EmployeeStats{}}

	type employee struct {
		row       models.EmployeeStats
		durations durationStats
	}
	employees := map[string]*employee{}
	var overall durationStats

	for _, b := range bookings {
		stats.TotalToday++
		switch b.Status {
		case models.StatusWaiting:
			stats.Waiting++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusCancelled:
			stats.Cancelled++
		}

		d := b.ServiceDuration()
		if b.Status == models.StatusCompleted && d > 0 {
			overall.add(d)
		}

		if b.StartedByName == nil || *b.StartedByName == "" {
			continue
		}
		e, ok := employees[*b.StartedByName]
		if !ok {
			e = &employee{row: models.EmployeeStats{Name: *b.StartedByName}}
			employees[*b.StartedByName] = e
		}
		e.row.Count++
		switch b.Status {
		case models.StatusCompleted:
			e.row.Completed++
			if d > 0 {
				e.durations.add(d)
			}
		case models.StatusCancelled:
			e.row.Cancelled++
		}
	}

	for _, e := range employees {
		e.row.AverageTime = FormatDuration(e.durations.average())
		e.row.MinTime = FormatDuration(e.durations.min)
		e.row.MaxTime = FormatDuration(e.durations.max)
		stats.EmployeeStats = append(stats.EmployeeStats, e.row)
	}
	sort.Slice(stats.EmployeeStats, func(i, j int) bool {
		return stats.EmployeeStats[i].Name < stats.EmployeeStats[j].Name
	})

	if overall.n > 0 {
		stats.TimeStats = &models.TimeStats{
			Average:        FormatDuration(overall.average()),
			Min:            FormatDuration(overall.min),
			Max:            FormatDuration(overall.max),
			TotalCompleted: overall.n,
		}
	}

	return stats
}

// FormatDuration renders d as HH:MM:SS, truncating sub-second precision.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
