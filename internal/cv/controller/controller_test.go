package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/db"
	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/events"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/gartstein/cvtracker/internal/cv/queue"
	"github.com/gartstein/cvtracker/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

type testEnv struct {
	svc      *CVService
	repo     *db.Repository
	producer *MockProducer
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	repo, err := db.NewRepository(context.Background(), &db.Config{
		Driver: db.DriverSQLite,
		DSN:    ":memory:",
	}, logger)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })

	q := queue.New(logger)
	t.Cleanup(q.Close)

	producer := &MockProducer{}
	return &testEnv{
		svc:      NewCVService(repo, q, producer, 60, logger),
		repo:     repo,
		producer: producer,
	}
}

func request(t *testing.T, domain string, cvType models.CVType) models.SubmissionRequest {
	return models.SubmissionRequest{
		Identity: mustIdentity(t, domain, ""),
		CVType:   cvType,
	}
}

// backdate records a submission as if it had been made daysAgo days ago.
func (env *testEnv) backdate(t *testing.T, companyID uuid.UUID, cvType models.CVType, daysAgo int) *models.Submission {
	t.Helper()
	sub := &models.Submission{
		ID:          uuid.New(),
		CompanyID:   companyID,
		CVType:      cvType,
		SubmittedAt: time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
	require.NoError(t, env.repo.CreateSubmission(context.Background(), sub))
	return sub
}

func TestCheck_FreshDomainIsEligible(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	before := time.Now().UTC()
	res, err := env.svc.Check(ctx, request(t, "fresh.io", models.English))
	require.NoError(t, err)

	assert.True(t, res.Eligible)
	assert.Equal(t, 0, res.DaysRemaining)
	assert.Nil(t, res.LastSubmission)
	assert.False(t, res.NextEligibleDate.Before(before.Truncate(time.Second)), "next eligible date should be now")
	assert.Equal(t, "fresh.io", res.Company.Name)

	// The company is created by the check, with no submissions.
	history, err := env.svc.CompanyHistory(ctx, res.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, history.Submissions)
	assert.Len(t, env.producer.ofType(events.CompanyCreated), 1)
}

func TestCheck_CooldownWindow(t *testing.T) {
	tests := []struct {
		name              string
		daysAgo           int
		expectedEligible  bool
		expectedRemaining int
	}{
		{name: "59 days ago", daysAgo: 59, expectedEligible: false, expectedRemaining: 1},
		{name: "60 days ago", daysAgo: 60, expectedEligible: true, expectedRemaining: 0},
		{name: "yesterday", daysAgo: 1, expectedEligible: false, expectedRemaining: 59},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			ctx := context.Background()

			first, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
			require.NoError(t, err)
			prior := env.backdate(t, first.Company.ID, models.English, tt.daysAgo)

			res, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedEligible, res.Eligible)
			assert.Equal(t, tt.expectedRemaining, res.DaysRemaining)
			require.NotNil(t, res.LastSubmission)
			assert.Equal(t, prior.ID, res.LastSubmission.ID)
			assert.True(t, res.NextEligibleDate.Equal(prior.SubmittedAt.AddDate(0, 0, 60)))

			// The other CV type is unaffected.
			other, err := env.svc.Check(ctx, request(t, "acme.io", models.German))
			require.NoError(t, err)
			assert.True(t, other.Eligible)
		})
	}
}

func TestCheck_Validation(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, err := env.svc.Check(ctx, models.SubmissionRequest{CVType: models.English})
	assert.ErrorIs(t, err, e.ErrInvalidIdentity)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = env.svc.Check(ctx, request(t, "acme.io", models.CVType("french")))
	assert.ErrorIs(t, err, e.ErrInvalidCVType)

	assert.Equal(t, 0, env.svc.QueueStats().Size)
}

func TestSubmit_RecordsWhenEligible(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	req := request(t, "acme.io", models.German)
	req.JobTitle = utils.Ptr("Backend Engineer")
	req.CompanyName = "Acme GmbH"

	receipt, err := env.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", receipt.Company.Name)
	assert.Equal(t, models.German, receipt.Submission.CVType)
	assert.Equal(t, "Backend Engineer", *receipt.Submission.JobTitle)
	assert.Nil(t, receipt.PreviousSubmission)
	assert.Len(t, env.producer.ofType(events.SubmissionRecorded), 1)

	history, err := env.svc.CompanyHistory(ctx, receipt.Company.ID)
	require.NoError(t, err)
	require.Len(t, history.Submissions, 1)
	assert.Equal(t, receipt.Submission.ID, history.Submissions[0].ID)
}

func TestSubmit_ReportsPreviousSubmission(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	first, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	prior := env.backdate(t, first.Company.ID, models.English, 90)

	receipt, err := env.svc.CheckAndSubmit(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	require.NotNil(t, receipt.PreviousSubmission)
	assert.Equal(t, prior.ID, receipt.PreviousSubmission.ID)
}

func TestSubmit_IneligibleWritesNothing(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	first, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	prior := env.backdate(t, first.Company.ID, models.English, 59)

	_, err = env.svc.Submit(ctx, request(t, "acme.io", models.English))
	require.ErrorIs(t, err, e.ErrCooldownActive)

	var cooldownErr *e.CooldownError
	require.True(t, errors.As(err, &cooldownErr))
	assert.Equal(t, 1, cooldownErr.DaysRemaining)
	assert.Equal(t, prior.ID.String(), cooldownErr.LastSubmission.ID)

	history, err := env.svc.CompanyHistory(ctx, first.Company.ID)
	require.NoError(t, err)
	assert.Len(t, history.Submissions, 1, "a refused submit must not write")
	assert.Empty(t, env.producer.ofType(events.SubmissionRecorded))
}

func TestSubmit_ConcurrentCallsAdmitOne(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	const callers = 20
	var accepted, refused atomic.Int32
	req := request(t, "race.io", models.English)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := env.svc.Submit(ctx, req)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, e.ErrCooldownActive):
				refused.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(callers-1), refused.Load())

	statuses, err := env.svc.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1, "exactly one company should exist")
	assert.Equal(t, 1, statuses[0].TotalSubmissions)
	assert.Len(t, env.producer.ofType(events.CompanyCreated), 1)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	identity := mustIdentity(t, "Acme.IO", "https://linkedin.com/company/acme")

	first, created, err := env.svc.resolver.GetOrCreate(ctx, identity, "Acme")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := env.svc.resolver.GetOrCreate(ctx, mustIdentity(t, "acme.io", ""), "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme", second.Name)

	third, created, err := env.svc.resolver.GetOrCreate(ctx, mustIdentity(t, "", "https://linkedin.com/company/acme"), "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)
}

func TestFind_SplitIdentityIsIntegrityError(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, _, err := env.svc.resolver.GetOrCreate(ctx, mustIdentity(t, "a.io", ""), "")
	require.NoError(t, err)
	_, _, err = env.svc.resolver.GetOrCreate(ctx, mustIdentity(t, "", "https://linkedin.com/company/b"), "")
	require.NoError(t, err)

	_, err = env.svc.Check(ctx, models.SubmissionRequest{
		Identity: mustIdentity(t, "a.io", "https://linkedin.com/company/b"),
		CVType:   models.English,
	})
	assert.ErrorIs(t, err, e.ErrDataIntegrity)
}

func TestDeleteCompany(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	res, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	companyID := res.Company.ID
	env.backdate(t, companyID, models.English, 200)
	env.backdate(t, companyID, models.English, 100)
	env.backdate(t, companyID, models.German, 10)

	deleted, err := env.svc.DeleteCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, companyID, deleted.ID)
	assert.Equal(t, "acme.io", *deleted.Domain)

	remaining, err := env.repo.ListSubmissions(ctx, companyID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = env.svc.CompanyHistory(ctx, companyID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = env.svc.DeleteCompany(ctx, companyID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	deletedEvents := env.producer.ofType(events.CompanyDeleted)
	require.Len(t, deletedEvents, 1)
	assert.Equal(t, companyID, deletedEvents[0].CompanyID)

	// The identity is free again.
	again, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	assert.NotEqual(t, companyID, again.Company.ID)
	assert.True(t, again.Eligible)
}

func TestSeed(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	englishAt := time.Now().UTC().AddDate(0, 0, -10)

	entries := []models.SeedEntry{
		{
			Name:               "Acme",
			Domain:             "acme.io",
			EnglishSubmittedAt: &englishAt,
			EnglishJobTitle:    utils.Ptr("SRE"),
		},
		{LinkedInURL: "https://linkedin.com/company/globex"},
	}

	results, err := env.svc.Seed(ctx, entries)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.SeedCreated, results[0].Status)
	assert.Equal(t, models.SeedCreated, results[1].Status)
	require.Len(t, results[0].Submissions, 1)
	assert.Equal(t, "SRE", *results[0].Submissions[0].JobTitle)
	assert.Equal(t, "https://linkedin.com/company/globex", results[1].Company.Name)

	// Seeding again finds everything and writes no history.
	results, err = env.svc.Seed(ctx, entries)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, models.SeedExisting, r.Status)
		assert.Empty(t, r.Submissions)
	}

	statuses, err := env.svc.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	total := 0
	for _, s := range statuses {
		total += s.TotalSubmissions
	}
	assert.Equal(t, 1, total)

	// The backfilled submission drives the cooldown.
	res, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, 50, res.DaysRemaining)
}

func TestSeed_RejectsBatchWithoutIdentity(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, err := env.svc.Seed(ctx, []models.SeedEntry{
		{Name: "Acme", Domain: "acme.io"},
		{Name: "Nameless"},
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = env.svc.Seed(ctx, nil)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	statuses, err := env.svc.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses, "nothing is written when validation fails")
}

func TestListCompanies_Status(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }

	res, err := env.svc.Check(ctx, request(t, "acme.io", models.English))
	require.NoError(t, err)

	englishAt := now.AddDate(0, 0, -20)
	require.NoError(t, env.repo.CreateSubmission(ctx, &models.Submission{
		ID: uuid.New(), CompanyID: res.Company.ID, CVType: models.English,
		SubmittedAt: englishAt, JobTitle: utils.Ptr("Platform Engineer"),
	}))
	require.NoError(t, env.repo.CreateSubmission(ctx, &models.Submission{
		ID: uuid.New(), CompanyID: res.Company.ID, CVType: models.English,
		SubmittedAt: now.AddDate(0, 0, -200),
	}))

	statuses, err := env.svc.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	status := statuses[0]

	assert.Equal(t, 2, status.TotalSubmissions)
	require.NotNil(t, status.English.LastSubmittedAt)
	assert.True(t, status.English.LastSubmittedAt.Equal(englishAt))
	assert.Equal(t, "Platform Engineer", *status.English.JobTitle)
	assert.Equal(t, 40, status.English.DaysRemaining)
	assert.False(t, status.English.CanSubmit)
	assert.True(t, status.English.NextAvailableDate.Equal(englishAt.AddDate(0, 0, 60)))

	assert.Nil(t, status.German.LastSubmittedAt)
	assert.True(t, status.German.CanSubmit)
	assert.Equal(t, 0, status.German.DaysRemaining)
	assert.True(t, status.German.NextAvailableDate.Equal(now))
}

func TestCooldownDaysDefault(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := queue.New(logger)
	defer q.Close()

	svc := NewCVService(nil, q, &MockProducer{}, 0, logger)
	assert.Equal(t, 60, svc.cooldownDays)
}

func TestPing(t *testing.T) {
	env := setupService(t)
	assert.NoError(t, env.svc.Ping(context.Background()))
}
