package models

import "time"

// SubmissionRequest carries the input of check, submit and check-and-submit.
type SubmissionRequest struct {
	Identity    Identity
	CVType      CVType
	CompanyName string
	JobTitle    *string
}

// Eligibility is the decision for one company/CV-type pair.
type Eligibility struct {
	Company          *Company
	CVType           CVType
	Eligible         bool
	DaysRemaining    int
	NextEligibleDate time.Time
	// LastSubmission is nil when the pair has never been submitted.
	LastSubmission *Submission
}

// SubmissionReceipt is returned by a committed submit.
type SubmissionReceipt struct {
	Submission *Submission
	Company    *Company
	// PreviousSubmission is the latest submission that existed before the commit.
	PreviousSubmission *Submission
}

// TypeStatus is the per-CV-type block of a company listing.
type TypeStatus struct {
	LastSubmittedAt   *time.Time
	JobTitle          *string
	DaysRemaining     int
	CanSubmit         bool
	NextAvailableDate time.Time
}

// CompanyStatus is one row of the aggregate listing.
type CompanyStatus struct {
	Company          Company
	English          TypeStatus
	German           TypeStatus
	TotalSubmissions int
}

// CompanyWithSubmissions is a company joined with all of its submissions.
type CompanyWithSubmissions struct {
	Company     Company
	Submissions []Submission
}

// SeedStatus tags the outcome of one seed entry.
type SeedStatus string

const (
	SeedCreated  SeedStatus = "created"
	SeedExisting SeedStatus = "existing"
)

// SeedEntry is one company of a bulk seed batch.
type SeedEntry struct {
	Name               string
	Domain             string
	LinkedInURL        string
	EnglishSubmittedAt *time.Time
	GermanSubmittedAt  *time.Time
	EnglishJobTitle    *string
	GermanJobTitle     *string
}

// SeedResult is the outcome of one seed entry.
type SeedResult struct {
	Company     Company
	Status      SeedStatus
	Submissions []Submission
}
