// Package db implements the relational store for companies and CV
// submissions on top of GORM. Postgres is the production driver; sqlite
// serves local runs and tests.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/cvtracker/internal/cv/db/models"
	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN is used as-is by the sqlite driver.
	DSN string
	// ConnectTimeout bounds the retries of the initial connection.
	ConnectTimeout time.Duration
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres, "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(c.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// NewRepository connects with the given config, retrying with exponential
// backoff until ConnectTimeout elapses, and migrates the schema.
func NewRepository(ctx context.Context, cfg *Config, logger *zap.Logger) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		bo.MaxElapsedTime = cfg.ConnectTimeout
	}

	var db *gorm.DB
	connect := func() error {
		db, err = gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One connection keeps a :memory: database alive and matches sqlite's single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&dbmodels.Company{}, &dbmodels.Submission{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return e.ErrDuplicate
	default:
		return fmt.Errorf("%w: %w", e.ErrStore, err)
	}
}

// FindCompanies returns the companies matching the identity's domain OR its
// LinkedIn URL. At most two rows are read; more than one means the identity
// is split across records.
func (r *Repository) FindCompanies(ctx context.Context, identity models.Identity) ([]models.Company, error) {
	if identity.IsZero() {
		return nil, e.ErrInvalidIdentity
	}

	query := r.db.WithContext(ctx).Model(&dbmodels.Company{})
	domain, hasDomain := identity.Domain()
	url, hasURL := identity.LinkedInURL()
	switch {
	case hasDomain && hasURL:
		query = query.Where("domain = ? OR linkedin_url = ?", domain, url)
	case hasDomain:
		query = query.Where("domain = ?", domain)
	default:
		query = query.Where("linkedin_url = ?", url)
	}

	var rows []dbmodels.Company
	if err := query.Order("created_at").Limit(2).Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	companies := make([]models.Company, 0, len(rows))
	for i := range rows {
		companies = append(companies, *rows[i].ToDomain())
	}
	return companies, nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	if err := r.db.WithContext(ctx).Create(dbmodels.CompanyFromDomain(company)).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row dbmodels.Company
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, storeError(err)
	}
	return row.ToDomain(), nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Company{}, "id = ?", id)
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteSubmissions removes every submission of a company and reports how
// many rows were deleted.
func (r *Repository) DeleteSubmissions(ctx context.Context, companyID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Submission{}, "company_id = ?", companyID)
	if result.Error != nil {
		return 0, storeError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if err := r.db.WithContext(ctx).Create(dbmodels.SubmissionFromDomain(submission)).Error; err != nil {
		return storeError(err)
	}
	return nil
}

// LatestSubmission returns the most recent submission of the pair or
// ErrNotFound. Equal timestamps are ordered by id.
func (r *Repository) LatestSubmission(ctx context.Context, companyID uuid.UUID, cvType models.CVType) (*models.Submission, error) {
	var row dbmodels.Submission
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND cv_type = ?", companyID, string(cvType)).
		Order("submitted_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		return nil, storeError(err)
	}
	return row.ToDomain(), nil
}

func (r *Repository) ListSubmissions(ctx context.Context, companyID uuid.UUID) ([]models.Submission, error) {
	var rows []dbmodels.Submission
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	submissions := make([]models.Submission, 0, len(rows))
	for i := range rows {
		submissions = append(submissions, *rows[i].ToDomain())
	}
	return submissions, nil
}

// ListCompaniesWithSubmissions loads every company, newest first, with its
// submissions preloaded.
func (r *Repository) ListCompaniesWithSubmissions(ctx context.Context) ([]models.CompanyWithSubmissions, error) {
	var rows []dbmodels.Company
	err := r.db.WithContext(ctx).
		Preload("Submissions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("submitted_at DESC")
		}).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storeError(err)
	}

	out := make([]models.CompanyWithSubmissions, 0, len(rows))
	for i := range rows {
		entry := models.CompanyWithSubmissions{
			Company:     *rows[i].ToDomain(),
			Submissions: make([]models.Submission, 0, len(rows[i].Submissions)),
		}
		for j := range rows[i].Submissions {
			entry.Submissions = append(entry.Submissions, *rows[i].Submissions[j].ToDomain())
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
