// Package controller implements the core business logic (service layer)
// for CV submission tracking: company resolution, the submission ledger,
// cooldown eligibility and bulk seeding.
package controller

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/cooldown"
	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/gartstein/cvtracker/internal/cv/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// AdmissionQueue serialises mutating operations.
type AdmissionQueue interface {
	queue.Runner
	Stats() queue.Stats
}

// Repository defines the storage interface the service is built on.
type Repository interface {
	CompanyStore
	SubmissionStore
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompaniesWithSubmissions(ctx context.Context) ([]models.CompanyWithSubmissions, error)
}

// CVService answers "can this company receive this CV type now?" and records
// submissions. Check, Submit and CheckAndSubmit run on the admission queue so
// the decision still holds when the submission is committed.
type CVService struct {
	repo         Repository
	resolver     *CompanyResolver
	ledger       *SubmissionLedger
	seeder       *BulkSeeder
	queue        AdmissionQueue
	cooldownDays int
	logger       *zap.Logger
	now          func() time.Time
}

// NewCVService wires the resolver, ledger and seeder over repo.
func NewCVService(repo Repository, admission AdmissionQueue, producer EventProducer, cooldownDays int, logger *zap.Logger) *CVService {
	if cooldownDays <= 0 {
		cooldownDays = cooldown.DefaultDays
	}
	resolver := NewCompanyResolver(repo, producer, logger)
	ledger := NewSubmissionLedger(repo, producer, logger)
	return &CVService{
		repo:         repo,
		resolver:     resolver,
		ledger:       ledger,
		seeder:       NewBulkSeeder(resolver, ledger, logger),
		queue:        admission,
		cooldownDays: cooldownDays,
		logger:       logger.Named("cv_service"),
		now:          time.Now,
	}
}

func validateRequest(req models.SubmissionRequest) error {
	if req.Identity.IsZero() {
		return e.ErrInvalidIdentity
	}
	if _, err := models.ParseCVType(string(req.CVType)); err != nil {
		return err
	}
	return nil
}

// Check resolves (creating if needed) the company and reports whether the
// CV type may be submitted now.
func (s *CVService) Check(ctx context.Context, req models.SubmissionRequest) (*models.Eligibility, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return queue.Do(ctx, s.queue, func(ctx context.Context) (*models.Eligibility, error) {
		return s.evaluate(ctx, req)
	})
}

// Submit records a submission when the pair is outside its cooldown window,
// otherwise fails with a *errors.CooldownError.
func (s *CVService) Submit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionReceipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return queue.Do(ctx, s.queue, func(ctx context.Context) (*models.SubmissionReceipt, error) {
		return s.commit(ctx, req)
	})
}

// CheckAndSubmit runs the decision and the conditional write as one queued
// task. It behaves exactly like Submit.
func (s *CVService) CheckAndSubmit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionReceipt, error) {
	return s.Submit(ctx, req)
}

// evaluate resolves the company, inspects the ledger and decides. The clock
// is sampled once.
func (s *CVService) evaluate(ctx context.Context, req models.SubmissionRequest) (*models.Eligibility, error) {
	company, _, err := s.resolver.GetOrCreate(ctx, req.Identity, req.CompanyName)
	if err != nil {
		return nil, err
	}

	latest, err := s.ledger.LatestFor(ctx, company.ID, req.CVType)
	if err != nil {
		return nil, err
	}

	var lastAt *time.Time
	if latest != nil {
		lastAt = &latest.SubmittedAt
	}
	decision := cooldown.Decide(lastAt, s.cooldownDays, s.now().UTC())

	return &models.Eligibility{
		Company:          company,
		CVType:           req.CVType,
		Eligible:         decision.Eligible,
		DaysRemaining:    decision.DaysRemaining,
		NextEligibleDate: decision.NextEligibleDate,
		LastSubmission:   latest,
	}, nil
}

func (s *CVService) commit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionReceipt, error) {
	eligibility, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	if !eligibility.Eligible {
		last := eligibility.LastSubmission
		s.logger.Info("Submission refused, cooldown active",
			zap.String("company_id", eligibility.Company.ID.String()),
			zap.String("cv_type", string(req.CVType)),
			zap.Int("days_remaining", eligibility.DaysRemaining),
		)
		return nil, &e.CooldownError{
			DaysRemaining:    eligibility.DaysRemaining,
			NextEligibleDate: eligibility.NextEligibleDate,
			LastSubmission: e.LastSubmission{
				ID:          last.ID.String(),
				SubmittedAt: last.SubmittedAt,
				JobTitle:    last.JobTitle,
			},
		}
	}

	submission, err := s.ledger.Create(ctx, eligibility.Company.ID, req.CVType, req.JobTitle)
	if err != nil {
		return nil, err
	}

	return &models.SubmissionReceipt{
		Submission:         submission,
		Company:            eligibility.Company,
		PreviousSubmission: eligibility.LastSubmission,
	}, nil
}

// ListCompanies computes the status of both CV types for every company.
// It reads outside the queue; results may lag a concurrent submit.
func (s *CVService) ListCompanies(ctx context.Context) ([]models.CompanyStatus, error) {
	rows, err := s.repo.ListCompaniesWithSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	now := s.now().UTC()
	statuses := make([]models.CompanyStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, models.CompanyStatus{
			Company:          row.Company,
			English:          s.typeStatus(row.Submissions, models.English, now),
			German:           s.typeStatus(row.Submissions, models.German, now),
			TotalSubmissions: len(row.Submissions),
		})
	}
	return statuses, nil
}

func (s *CVService) typeStatus(submissions []models.Submission, cvType models.CVType, now time.Time) models.TypeStatus {
	var latest *models.Submission
	for i := range submissions {
		sub := &submissions[i]
		if sub.CVType != cvType {
			continue
		}
		if latest == nil || sub.SubmittedAt.After(latest.SubmittedAt) {
			latest = sub
		}
	}

	if latest == nil {
		d := cooldown.Decide(nil, s.cooldownDays, now)
		return models.TypeStatus{
			DaysRemaining:     d.DaysRemaining,
			CanSubmit:         d.Eligible,
			NextAvailableDate: d.NextEligibleDate,
		}
	}

	at := latest.SubmittedAt
	d := cooldown.Decide(&at, s.cooldownDays, now)
	return models.TypeStatus{
		LastSubmittedAt:   &at,
		JobTitle:          latest.JobTitle,
		DaysRemaining:     d.DaysRemaining,
		CanSubmit:         d.Eligible,
		NextAvailableDate: d.NextEligibleDate,
	}
}

// CompanyHistory returns a company and its submissions, newest first.
func (s *CVService) CompanyHistory(ctx context.Context, id uuid.UUID) (*models.CompanyWithSubmissions, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	submissions, err := s.ledger.AllFor(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.Slice(submissions, func(i, j int) bool {
		return submissions[i].SubmittedAt.After(submissions[j].SubmittedAt)
	})
	return &models.CompanyWithSubmissions{Company: *company, Submissions: submissions}, nil
}

// DeleteCompany removes a company and its submissions. It does not go
// through the queue.
func (s *CVService) DeleteCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return s.resolver.DeleteByID(ctx, id)
}

// Seed imports a batch of companies. It does not go through the queue.
func (s *CVService) Seed(ctx context.Context, entries []models.SeedEntry) ([]models.SeedResult, error) {
	return s.seeder.Seed(ctx, entries)
}

// QueueStats reports the admission queue depth.
func (s *CVService) QueueStats() queue.Stats {
	return s.queue.Stats()
}

// Ping checks that the store is reachable when it supports it.
func (s *CVService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
