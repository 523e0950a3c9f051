package scheduler

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	projectrepo "statuspulse-backend/internal/project/repository"
	"statuspulse-backend/internal/report/domain"
	"statuspulse-backend/internal/report/usecase"
)

// maxConcurrentProjects bounds how many reports generate at once per tick.
const maxConcurrentProjects = 4

// ReportScheduler triggers report generation for every reportable project on
// a fixed cadence. Per-project serialization is the lease lock's job, not
// this loop's: an overlapping manual trigger simply loses the lock race.
type ReportScheduler struct {
	projects    projectrepo.ProjectRepository
	reports     usecase.ReportUsecase
	interval    time.Duration
	lockTimeout time.Duration
	stopChan    chan struct{}
}

// NewReportScheduler creates a new scheduler
func NewReportScheduler(
	projects projectrepo.ProjectRepository,
	reports usecase.ReportUsecase,
	interval time.Duration,
	lockTimeout time.Duration,
) *ReportScheduler {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &ReportScheduler{
		projects:    projects,
		reports:     reports,
		interval:    interval,
		lockTimeout: lockTimeout,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ReportScheduler) Start() {
	log.Printf("[Scheduler] Starting report scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runTick()
			case <-s.stopChan:
				log.Println("[Scheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ReportScheduler) Stop() {
	close(s.stopChan)
}

// runTick generates reports for all reportable projects. One project's
// failure never aborts the others.
func (s *ReportScheduler) runTick() {
	projects, err := s.projects.FindReportable()
	if err != nil {
		log.Printf("[Scheduler] Error listing reportable projects: %v", err)
		return
	}
	if len(projects) == 0 {
		return
	}

	log.Printf("[Scheduler] Generating reports for %d projects", len(projects))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(maxConcurrentProjects)
	for _, project := range projects {
		projectID := project.ID
		g.Go(func() error {
			result, err := s.reports.Generate(ctx, projectID, usecase.GenerateOptions{
				WindowHours: 24,
				LockTimeout: s.lockTimeout,
			})
			if err != nil {
				log.Printf("[Scheduler] Generation error for project %s: %v", projectID, err)
				return nil
			}
			switch result.Outcome {
			case domain.OutcomeDelivered:
				log.Printf("[Scheduler] Delivered report for project %s (delivery %s)", projectID, result.DeliveryID)
			case domain.OutcomeDeliveryFailed:
				log.Printf("[Scheduler] Delivery failed for project %s: %s", projectID, result.DeliveryErr)
			default:
				log.Printf("[Scheduler] Project %s: %s", projectID, result.Outcome)
			}
			return nil
		})
	}
	_ = g.Wait()
}
