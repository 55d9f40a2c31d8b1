package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionStore is the part of the store the ledger needs.
type SubmissionStore interface {
	LatestSubmission(ctx context.Context, companyID uuid.UUID, cvType models.CVType) (*models.Submission, error)
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	ListSubmissions(ctx context.Context, companyID uuid.UUID) ([]models.Submission, error)
}

// SubmissionLedger records and queries submissions. It does not enforce
// the cooldown; that is the eligibility service's job.
type SubmissionLedger struct {
	repo     SubmissionStore
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubmissionLedger(repo SubmissionStore, producer EventProducer, logger *zap.Logger) *SubmissionLedger {
	return &SubmissionLedger{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("submission_ledger"),
		now:      time.Now,
	}
}

// LatestFor returns the most recent submission of the pair, or nil.
func (l *SubmissionLedger) LatestFor(ctx context.Context, companyID uuid.UUID, cvType models.CVType) (*models.Submission, error) {
	latest, err := l.repo.LatestSubmission(ctx, companyID, cvType)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest submission: %w", err)
	}
	return latest, nil
}

// Create records a submission stamped with the current time.
func (l *SubmissionLedger) Create(ctx context.Context, companyID uuid.UUID, cvType models.CVType, jobTitle *string) (*models.Submission, error) {
	return l.Record(ctx, companyID, cvType, jobTitle, l.now())
}

// Record stores a submission with an explicit timestamp. Seeding uses it to
// backfill history.
func (l *SubmissionLedger) Record(ctx context.Context, companyID uuid.UUID, cvType models.CVType, jobTitle *string, submittedAt time.Time) (*models.Submission, error) {
	submission := &models.Submission{
		ID:          uuid.New(),
		CompanyID:   companyID,
		CVType:      cvType,
		SubmittedAt: submittedAt.UTC(),
		JobTitle:    jobTitle,
	}
	if err := l.repo.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	l.logger.Info("Submission recorded",
		zap.String("company_id", companyID.String()),
		zap.String("cv_type", string(cvType)),
		zap.Time("submitted_at", submission.SubmittedAt),
	)
	l.producer.Produce(events.Event{
		Type:       events.SubmissionRecorded,
		CompanyID:  companyID,
		Submission: submission,
	})
	return submission, nil
}

// AllFor returns every submission of the company in store order.
func (l *SubmissionLedger) AllFor(ctx context.Context, companyID uuid.UUID) ([]models.Submission, error) {
	submissions, err := l.repo.ListSubmissions(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}
