// Package models contains the persistence models for the application,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/google/uuid"
)

// Company is a row of the companies table. Domain and LinkedInURL are
// nullable and unique when present.
type Company struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Name        string       `gorm:"size:255;not null"`
	Domain      *string      `gorm:"size:255;uniqueIndex"`
	LinkedInURL *string      `gorm:"column:linkedin_url;size:512;uniqueIndex"`
	CreatedAt   time.Time    `gorm:"not null;index"`
	Submissions []Submission `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

func (Company) TableName() string { return "companies" }

// Submission is a row of the cv_submissions table.
type Submission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index:idx_cv_submissions_lookup,priority:1"`
	CVType      string    `gorm:"column:cv_type;size:16;not null;index:idx_cv_submissions_lookup,priority:2"`
	SubmittedAt time.Time `gorm:"not null;index:idx_cv_submissions_lookup,priority:3"`
	JobTitle    *string   `gorm:"size:512"`
}

func (Submission) TableName() string { return "cv_submissions" }

// CompanyFromDomain converts a domain company into a row.
func CompanyFromDomain(c *models.Company) *Company {
	return &Company{
		ID:          c.ID,
		Name:        c.Name,
		Domain:      c.Domain,
		LinkedInURL: c.LinkedInURL,
		CreatedAt:   c.CreatedAt.UTC(),
	}
}

// ToDomain converts the row into a domain company.
func (c *Company) ToDomain() *models.Company {
	return &models.Company{
		ID:          c.ID,
		Name:        c.Name,
		Domain:      c.Domain,
		LinkedInURL: c.LinkedInURL,
		CreatedAt:   c.CreatedAt.UTC(),
	}
}

// SubmissionFromDomain converts a domain submission into a row.
func SubmissionFromDomain(s *models.Submission) *Submission {
	return &Submission{
		ID:          s.ID,
		CompanyID:   s.CompanyID,
		CVType:      string(s.CVType),
		SubmittedAt: s.SubmittedAt.UTC(),
		JobTitle:    s.JobTitle,
	}
}

// ToDomain converts the row into a domain submission.
func (s *Submission) ToDomain() *models.Submission {
	return &models.Submission{
		ID:          s.ID,
		CompanyID:   s.CompanyID,
		CVType:      models.CVType(s.CVType),
		SubmittedAt: s.SubmittedAt.UTC(),
		JobTitle:    s.JobTitle,
	}
}
