package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/db"
	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyStore is the part of the store the resolver needs.
type CompanyStore interface {
	FindCompanies(ctx context.Context, identity models.Identity) ([]models.Company, error)
	CreateCompany(ctx context.Context, company *models.Company) error
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// CompanyResolver finds companies by identity and creates them on first use.
// GetOrCreate is a read-then-write sequence; callers that may race on the
// same identity must run it through the admission queue.
type CompanyResolver struct {
	repo     CompanyStore
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

func NewCompanyResolver(repo CompanyStore, producer EventProducer, logger *zap.Logger) *CompanyResolver {
	return &CompanyResolver{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_resolver"),
		now:      time.Now,
	}
}

// Find returns the single company matching the identity's domain or LinkedIn
// URL. A miss is ErrNotFound; several matches are ErrDataIntegrity.
func (r *CompanyResolver) Find(ctx context.Context, identity models.Identity) (*models.Company, error) {
	if identity.IsZero() {
		return nil, e.ErrInvalidIdentity
	}

	companies, err := r.repo.FindCompanies(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}

	switch len(companies) {
	case 0:
		return nil, e.ErrNotFound
	case 1:
		return &companies[0], nil
	default:
		r.logger.Error("Identity matches several companies",
			zap.Stringer("identity", identity),
			zap.Strings("company_ids", []string{companies[0].ID.String(), companies[1].ID.String()}),
		)
		return nil, fmt.Errorf("%w: identity %s matches %d companies", e.ErrDataIntegrity, identity, len(companies))
	}
}

// GetOrCreate returns the company for the identity, creating it when none
// exists. The boolean reports whether a new record was created.
func (r *CompanyResolver) GetOrCreate(ctx context.Context, identity models.Identity, displayName string) (*models.Company, bool, error) {
	company, err := r.Find(ctx, identity)
	if err == nil {
		return company, false, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, false, err
	}

	company = &models.Company{
		ID:        uuid.New(),
		Name:      identity.DisplayName(displayName),
		CreatedAt: r.now().UTC(),
	}
	if domain, ok := identity.Domain(); ok {
		company.Domain = &domain
	}
	if url, ok := identity.LinkedInURL(); ok {
		company.LinkedInURL = &url
	}

	if err := r.repo.CreateCompany(ctx, company); err != nil {
		if !errors.Is(err, e.ErrDuplicate) {
			return nil, false, fmt.Errorf("failed to create company: %w", err)
		}
		// Another writer got there first; the unique index kept one row.
		r.logger.Warn("Company created concurrently, re-reading",
			zap.Stringer("identity", identity),
		)
		existing, ferr := r.Find(ctx, identity)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}

	r.logger.Info("Company created",
		zap.String("company_id", company.ID.String()),
		zap.Stringer("identity", identity),
	)
	r.producer.Produce(events.Event{
		Type:      events.CompanyCreated,
		CompanyID: company.ID,
		Company:   company,
	})
	return company, true, nil
}

// DeleteByID removes a company and all of its submissions in one
// transaction and returns the company as it was before deletion.
func (r *CompanyResolver) DeleteByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
	}

	var snapshot *models.Company
	var removed int64
	err := r.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		company, err := tx.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		if removed, err = tx.DeleteSubmissions(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteCompany(ctx, id); err != nil {
			return err
		}
		snapshot = company
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("company %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to delete company: %w", err)
	}

	r.logger.Info("Company deleted",
		zap.String("company_id", id.String()),
		zap.Int64("submissions_removed", removed),
	)
	r.producer.Produce(events.Event{
		Type:      events.CompanyDeleted,
		CompanyID: id,
		Company:   snapshot,
	})
	return snapshot, nil
}
