package jobs

import (
	"fmt"
	"log/slog"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// JobManager coordinates the scheduled jobs in the service.
type JobManager struct {
	assignmentSweepJob *AssignmentSweepJob
}

// NewJobManager creates a job manager wired to the orchestration service.
func NewJobManager(
	deliveries repository.DeliveryRepository,
	orchestra *service.DeliveryService,
	sweepSchedule string,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		assignmentSweepJob: NewAssignmentSweepJob(deliveries, orchestra, sweepSchedule, logger),
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.assignmentSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start assignment sweep job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.assignmentSweepJob.Stop()
}
