package service

import (
	"context"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"
)

type StatsService struct {
	store domain.BookingStore
}

var _ domain.StatsService = (*StatsService)(nil)

func NewStatsService(store domain.BookingStore) *StatsService {
	return &StatsService{store: store}
}

// ComputeStats tallies the customer's bookings by status. Every booking
// counts toward TotalBookings, including ones whose status matches no bucket.
func (s *StatsService) ComputeStats(ctx context.Context, customerID string) (models.CustomerStats, error) {
	var stats models.CustomerStats

	bookings, err := s.store.FindBookingsByCustomer(ctx, customerID)
	if err != nil {
		return stats, err
	}

	for _, b := range bookings {
		switch models.NormalizeStatus(b.Status) {
		case models.StatusCompleted:
			stats.CompletedCount++
		case models.StatusPending:
			stats.PendingCount++
		case models.StatusAssigned, models.StatusInProgress:
			stats.InProgressCount++
		case models.StatusApproved:
			stats.ScheduledCount++
		}
		stats.TotalBookings++
	}
	return stats, nil
}
