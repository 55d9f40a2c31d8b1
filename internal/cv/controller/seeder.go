package controller

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"go.uber.org/zap"
)

// BulkSeeder imports companies by identity, creating the missing ones and
// optionally backfilling their last known submission per CV type.
// It is not serialised; do not run it against identities that live
// traffic is touching.
type BulkSeeder struct {
	resolver *CompanyResolver
	ledger   *SubmissionLedger
	logger   *zap.Logger
}

func NewBulkSeeder(resolver *CompanyResolver, ledger *SubmissionLedger, logger *zap.Logger) *BulkSeeder {
	return &BulkSeeder{
		resolver: resolver,
		ledger:   ledger,
		logger:   logger.Named("bulk_seeder"),
	}
}

type backfill struct {
	cvType   models.CVType
	at       *time.Time
	jobTitle *string
}

// Seed validates the whole batch before writing anything. Backfilled
// submissions are written only for companies created by this batch, so
// re-running a seed never duplicates history.
func (b *BulkSeeder) Seed(ctx context.Context, entries []models.SeedEntry) ([]models.SeedResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: companies array is required and must not be empty", e.ErrInvalidInput)
	}

	identities := make([]models.Identity, len(entries))
	for i, entry := range entries {
		identity, err := models.NewIdentity(entry.Domain, entry.LinkedInURL)
		if err != nil {
			return nil, fmt.Errorf("entry %d: each company must have at least a domain or linkedin_url: %w", i, err)
		}
		identities[i] = identity
	}

	results := make([]models.SeedResult, 0, len(entries))
	for i, entry := range entries {
		company, created, err := b.resolver.GetOrCreate(ctx, identities[i], entry.Name)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		result := models.SeedResult{Company: *company, Status: models.SeedExisting}
		if created {
			result.Status = models.SeedCreated
			for _, bf := range []backfill{
				{cvType: models.English, at: entry.EnglishSubmittedAt, jobTitle: entry.EnglishJobTitle},
				{cvType: models.German, at: entry.GermanSubmittedAt, jobTitle: entry.GermanJobTitle},
			} {
				if bf.at == nil {
					continue
				}
				sub, err := b.ledger.Record(ctx, company.ID, bf.cvType, bf.jobTitle, *bf.at)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				result.Submissions = append(result.Submissions, *sub)
			}
		}
		results = append(results, result)
	}

	created := 0
	for _, r := range results {
		if r.Status == models.SeedCreated {
			created++
		}
	}
	b.logger.Info("Seed batch applied",
		zap.Int("entries", len(entries)),
		zap.Int("created", created),
		zap.Int("existing", len(entries)-created),
	)
	return results, nil
}
