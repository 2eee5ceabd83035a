package services

import (
	"context"
	"fmt"
	"time"

	"report-desk/cache"
	"report-desk/models"
)

// DashboardStats sind die Zähler der Startseite.
type DashboardStats struct {
	TotalReports     int64 `json:"total_reports"`
	ReportsThisWeek  int64 `json:"reports_this_week"`
	ReportsThisMonth int64 `json:"reports_this_month"`
}

// startOfWeek liefert Montag 00:00 der Woche von t.
func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Stats zählt alle Artikel sowie die dieser Woche und dieses Monats. Jeder Zähler wird einzeln gecacht.
func (s *ArticleService) Stats(ctx context.Context) (DashboardStats, error) {
	now := s.Now()
	count := func(key string, since time.Time) (int64, error) {
		n, _, err := cache.Remember(ctx, s.Cache, key, s.TTL, func() (int64, error) {
			var total int64
			query := s.DB.WithContext(ctx).Model(&models.Article{})
			if !since.IsZero() {
				query = query.Where("created_at >= ?", since)
			}
			err := query.Count(&total).Error
			return total, err
		})
		if err != nil {
			return 0, fmt.Errorf("stats %s: %w", key, err)
		}
		return n, nil
	}

	var stats DashboardStats
	var err error
	if stats.TotalReports, err = count(keyTotalReports, time.Time{}); err != nil {
		return DashboardStats{}, err
	}
	if stats.ReportsThisWeek, err = count(keyReportsThisWeek, startOfWeek(now)); err != nil {
		return DashboardStats{}, err
	}
	if stats.ReportsThisMonth, err = count(keyReportsThisMonth, startOfMonth(now)); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

// CountByStatus zählt Artikel je Status, ungecacht. Status ohne Artikel erscheinen mit 0.
func (s *ArticleService) CountByStatus(ctx context.Context) (map[models.ApprovalStatus]int64, error) {
	var rows []struct {
		ApprovalStatus models.ApprovalStatus
		Total          int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Article{}).
		Select("approval_status, COUNT(*) AS total").
		Group("approval_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	counts := make(map[models.ApprovalStatus]int64, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}
	for _, r := range rows {
		counts[r.ApprovalStatus] = r.Total
	}
	return counts, nil
}
