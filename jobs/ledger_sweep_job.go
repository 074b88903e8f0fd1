// File: /jobs/ledger_sweep_job.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tourbook-api/repositories"
	"tourbook-api/services"
)

// LedgerSweepJob periodically frees seats of start dates that have passed and
// clears expired password reset tokens.
type LedgerSweepJob struct {
	tourService *services.TourService
	userRepo    *repositories.UserRepository
	ticker      *time.Ticker
	done        chan bool
	now         func() time.Time
}

func NewLedgerSweepJob(db *gorm.DB, interval time.Duration) *LedgerSweepJob {
	userRepo := repositories.NewUserRepository(db)
	tourRepo := repositories.NewTourRepository(db)

	return &LedgerSweepJob{
		tourService: services.NewTourService(tourRepo, userRepo),
		userRepo:    userRepo,
		ticker:      time.NewTicker(interval),
		done:        make(chan bool),
		now:         time.Now,
	}
}

// Start runs one sweep immediately and then one per interval.
func (j *LedgerSweepJob) Start() {
	fmt.Println("Ledger sweep job started")

	go func() {
		j.sweep()

		for {
			select {
			case <-j.ticker.C:
				j.sweep()
			case <-j.done:
				fmt.Println("Ledger sweep job stopped")
				return
			}
		}
	}()
}

func (j *LedgerSweepJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

func (j *LedgerSweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changed, err := j.tourService.SweepExpired(ctx)
	if err != nil {
		fmt.Printf("Error during ledger sweep: %v\n", err)
		return
	}

	cleared, err := j.userRepo.ClearExpiredTokens(ctx, j.now().UTC())
	if err != nil {
		fmt.Printf("Error clearing expired reset tokens: %v\n", err)
		return
	}

	fmt.Printf("Ledger sweep completed: %d tours purged, %d reset tokens cleared\n", changed, cleared)
}
