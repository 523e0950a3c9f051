package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"statuspulse-backend/internal/lock"
	projectdomain "statuspulse-backend/internal/project/domain"
	projectrepo "statuspulse-backend/internal/project/repository"
	"statuspulse-backend/internal/report/domain"
	reportrepo "statuspulse-backend/internal/report/repository"
	"statuspulse-backend/pkg/slack"
)

// Deliverer abstracts the Slack client for the orchestrator
type Deliverer interface {
	Deliver(ctx context.Context, text string, ch slack.ChannelConfig) slack.Result
}

// GenerateOptions tunes one generation attempt
type GenerateOptions struct {
	WindowHours int
	Force       bool
	LockTimeout time.Duration
}

// GenerateResult is the terminal outcome of one generation attempt. Expected
// non-delivery outcomes (busy, suppressed, skipped) are values here, not
// errors; only infrastructure failures surface as errors.
type GenerateResult struct {
	Outcome     domain.Outcome       `json:"outcome"`
	DeliveryID  string               `json:"delivery_id,omitempty"`
	PayloadHash string               `json:"payload_hash,omitempty"`
	Post        *domain.ComposedPost `json:"post,omitempty"`
	DeliveryErr string               `json:"delivery_error,omitempty"`
}

// PreviewResult pairs the snapshot with the post it would produce
type PreviewResult struct {
	Payload *domain.StatusPayload `json:"payload"`
	Post    *domain.ComposedPost  `json:"post"`
}

// ReportUsecase sequences lock, dedupe, snapshot, composition and delivery
type ReportUsecase interface {
	Generate(ctx context.Context, projectID string, opts GenerateOptions) (*GenerateResult, error)
	Preview(ctx context.Context, projectID string, windowHours int) (*PreviewResult, error)
	LastDelivery(projectID string) (*domain.DeliveryRecord, error)
}

// reportUsecase implements ReportUsecase
type reportUsecase struct {
	projects     projectrepo.ProjectRepository
	deliveries   reportrepo.DeliveryRecordRepository
	locker       lock.Lock
	builder      *SnapshotBuilder
	composer     *Composer
	deliverer    Deliverer
	botToken     string
	dedupeWindow time.Duration
	lockTTL      time.Duration
	now          func() time.Time
}

// NewReportUsecase creates a new instance of reportUsecase
func NewReportUsecase(
	projects projectrepo.ProjectRepository,
	deliveries reportrepo.DeliveryRecordRepository,
	locker lock.Lock,
	builder *SnapshotBuilder,
	composer *Composer,
	deliverer Deliverer,
	botToken string,
	dedupeWindow time.Duration,
	lockTTL time.Duration,
) ReportUsecase {
	return &reportUsecase{
		projects:     projects,
		deliveries:   deliveries,
		locker:       locker,
		builder:      builder,
		composer:     composer,
		deliverer:    deliverer,
		botToken:     botToken,
		dedupeWindow: dedupeWindow,
		lockTTL:      lockTTL,
		now:          time.Now,
	}
}

// Generate runs one attempt for the project. Concurrent attempts for the
// same project converge to one holder past the lock; the rest end LockBusy.
// The lock is released on every exit path.
func (u *reportUsecase) Generate(ctx context.Context, projectID string, opts GenerateOptions) (*GenerateResult, error) {
	project, err := u.projects.FindByID(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	lockKey := "project:" + projectID
	acquired, err := u.locker.Acquire(ctx, lockKey, u.lockTTL, opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("lock acquire failed: %w", err)
	}
	if !acquired {
		log.Printf("[Orchestrator] Lock busy for project %s", projectID)
		return &GenerateResult{Outcome: domain.OutcomeLockBusy}, nil
	}
	defer func() {
		if err := u.locker.Release(lockKey); err != nil {
			log.Printf("[Orchestrator] Error releasing lock %s: %v", lockKey, err)
		}
	}()

	// Snapshot first: the dedupe guard joins on its content hash. Building
	// it is read-only; no network or model call happens before the guard.
	payload, err := u.builder.Build(projectID, opts.WindowHours)
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		existing, err := u.deliveries.FindRecent(projectID, payload.PayloadHash, u.now().Add(-u.dedupeWindow))
		if err != nil {
			return nil, fmt.Errorf("dedupe lookup failed: %w", err)
		}
		if existing != nil {
			log.Printf("[Orchestrator] Duplicate suppressed for project %s (hash %.12s)", projectID, payload.PayloadHash)
			return &GenerateResult{
				Outcome:     domain.OutcomeSuppressed,
				DeliveryID:  existing.ID,
				PayloadHash: payload.PayloadHash,
			}, nil
		}
	}

	if payload.BusinessCalendar.SkipPostToday {
		log.Printf("[Orchestrator] Non-business day for project %s, skipping", projectID)
		return &GenerateResult{
			Outcome:     domain.OutcomeSkippedNonBusinessDay,
			PayloadHash: payload.PayloadHash,
		}, nil
	}

	post := u.composer.Compose(ctx, payload)

	result := u.deliverer.Deliver(ctx, post.PostText, channelConfig(project, u.botToken))
	if !result.OK {
		log.Printf("[Orchestrator] Delivery failed for project %s: %v", projectID, result.Err)
		return &GenerateResult{
			Outcome:     domain.OutcomeDeliveryFailed,
			PayloadHash: payload.PayloadHash,
			Post:        post,
			DeliveryErr: result.Err.Error(),
		}, nil
	}

	// The record write is the last step; nothing may fail after it.
	record, err := u.buildRecord(payload, post, result)
	if err != nil {
		return nil, err
	}
	if err := u.deliveries.Save(record); err != nil {
		return nil, fmt.Errorf("failed to persist delivery record: %w", err)
	}

	log.Printf("[Orchestrator] Delivered report for project %s via %s (hash %.12s)", projectID, post.Metrics.CompositionMethod, payload.PayloadHash)
	return &GenerateResult{
		Outcome:     domain.OutcomeDelivered,
		DeliveryID:  record.ID,
		PayloadHash: payload.PayloadHash,
		Post:        post,
	}, nil
}

// Preview composes without locking, delivering or persisting
func (u *reportUsecase) Preview(ctx context.Context, projectID string, windowHours int) (*PreviewResult, error) {
	payload, err := u.builder.Build(projectID, windowHours)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Payload: payload,
		Post:    u.composer.Compose(ctx, payload),
	}, nil
}

func (u *reportUsecase) LastDelivery(projectID string) (*domain.DeliveryRecord, error) {
	project, err := u.projects.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return u.deliveries.FindLatest(projectID)
}

// channelConfig picks the project's delivery mode: webhook when a webhook
// URL is configured, otherwise the bot token plus channel id.
func channelConfig(project *projectdomain.Project, botToken string) slack.ChannelConfig {
	if project.SlackWebhookURL != "" {
		return slack.ChannelConfig{
			WebhookURL: project.SlackWebhookURL,
			ThreadTS:   project.SlackThreadTS,
		}
	}
	return slack.ChannelConfig{
		Token:     botToken,
		ChannelID: project.SlackChannelID,
		ThreadTS:  project.SlackThreadTS,
	}
}

func (u *reportUsecase) buildRecord(payload *domain.StatusPayload, post *domain.ComposedPost, delivery slack.Result) (*domain.DeliveryRecord, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload for record: %w", err)
	}
	return &domain.DeliveryRecord{
		ID:          uuid.New().String(),
		ProjectID:   payload.ProjectID,
		PayloadHash: payload.PayloadHash,
		WindowStart: payload.WindowStart,
		WindowEnd:   payload.WindowEnd,
		PostText:    post.PostText,
		Payload:     datatypes.JSON(serialized),
		Method:      post.Metrics.CompositionMethod,
		SlackTS:     delivery.Timestamp,
		DeliveredAt: u.now(),
		CreatedAt:   u.now(),
	}, nil
}
