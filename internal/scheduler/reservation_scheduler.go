package scheduler

import (
	"github.com/dyoon/shopcart-backend/internal/app/service"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ReservationScheduler reclaims expired inventory holds on a fixed cadence
// so abandoned carts cannot starve other shoppers of stock.
type ReservationScheduler struct {
	cron      *cron.Cron
	inventory service.InventoryService
	spec      string
}

func NewReservationScheduler(inventory service.InventoryService, spec string) *ReservationScheduler {
	return &ReservationScheduler{
		cron:      cron.New(),
		inventory: inventory,
		spec:      spec,
	}
}

// Start registers and launches the cleanup job.
func (s *ReservationScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		removed, err := s.inventory.CleanExpiredReservations()
		if err != nil {
			logger.Error("Scheduled reservation cleanup failed", err)
			return
		}
		if removed > 0 {
			logger.Info("Scheduled reservation cleanup finished", map[string]interface{}{
				"removed": removed,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to register reservation cleanup job", err)
		return err
	}

	s.cron.Start()
	logger.Info("Reservation scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// Stop halts the scheduler.
func (s *ReservationScheduler) Stop() {
	logger.Info("Stopping reservation scheduler...")
	s.cron.Stop()
	logger.Info("Reservation scheduler stopped")
}
