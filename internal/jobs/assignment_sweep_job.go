package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// AssignmentSweepJob periodically retries driver assignment for deliveries
// still pending because no driver was free when they were created.
type AssignmentSweepJob struct {
	deliveries repository.DeliveryRepository
	orchestra  *service.DeliveryService
	cron       *cron.Cron
	schedule   string
	logger     *slog.Logger
}

// NewAssignmentSweepJob creates the sweep job with a cron schedule
// (seconds-precision spec, e.g. "*/30 * * * * *").
func NewAssignmentSweepJob(
	deliveries repository.DeliveryRepository,
	orchestra *service.DeliveryService,
	schedule string,
	logger *slog.Logger,
) *AssignmentSweepJob {
	return &AssignmentSweepJob{
		deliveries: deliveries,
		orchestra:  orchestra,
		cron:       cron.New(cron.WithSeconds()),
		schedule:   schedule,
		logger:     logger.With("component", "assignment_sweep_job"),
	}
}

// Start schedules the sweep.
func (j *AssignmentSweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()
		if err := j.sweep(ctx); err != nil {
			j.logger.ErrorContext(ctx, "assignment sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("assignment sweep job started", "schedule", j.schedule)
	return nil
}

// Stop stops the sweep.
func (j *AssignmentSweepJob) Stop() {
	j.cron.Stop()
	j.logger.Info("assignment sweep job stopped")
}

// sweep walks pending deliveries and auto-assigns their pickup legs.
// Hubs with no free drivers are expected; only unexpected failures log.
func (j *AssignmentSweepJob) sweep(ctx context.Context) error {
	pending, err := j.deliveries.GetByStatus(ctx, domain.StatusPending)
	if err != nil {
		return err
	}

	for _, delivery := range pending {
		leg := delivery.LegByType(domain.LegTypePickup)
		if leg == nil || leg.Status != domain.LegStatusUnassigned {
			continue
		}

		_, err := j.orchestra.AssignDriver(ctx, service.AssignDriverRequest{
			DeliveryID: delivery.ID,
			LegNumber:  leg.Number,
			Actor:      "sweeper",
		})
		switch {
		case err == nil:
			j.logger.InfoContext(ctx, "assigned pickup driver",
				"delivery_id", delivery.ID, "tracking_number", delivery.TrackingNumber)
		case errors.Is(err, service.ErrNoDriverAvailable),
			errors.Is(err, service.ErrDeliveryLocked),
			errors.Is(err, service.ErrLegAlreadyAssigned):
			// Expected while the network is saturated or another caller
			// is working the same delivery.
		default:
			j.logger.ErrorContext(ctx, "sweep assignment failed",
				"delivery_id", delivery.ID, "error", err)
		}
	}
	return nil
}
