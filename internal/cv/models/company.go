// Package models defines the core domain models for CV submission tracking.
// It includes definitions for Company, Submission, the CVType enumeration and
// the Identity used to deduplicate companies.
package models

import (
	"strings"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/google/uuid"
)

// CVType represents the language variant of a submitted CV.
type CVType string

const (
	English CVType = "english"
	German  CVType = "german"
)

// CVTypes lists every supported CV type in display order.
var CVTypes = []CVType{English, German}

// ParseCVType validates s against the closed set of CV types.
func ParseCVType(s string) (CVType, error) {
	switch CVType(s) {
	case English, German:
		return CVType(s), nil
	default:
		return "", e.ErrInvalidCVType
	}
}

// Identity is the (domain, LinkedIn profile URL) pair used to find a company.
// The zero value is invalid; build one with NewIdentity.
type Identity struct {
	domain      string
	linkedInURL string
}

// NewIdentity normalises the given fields and rejects the case where both
// are empty.
func NewIdentity(domain, linkedInURL string) (Identity, error) {
	id := Identity{
		domain:      strings.ToLower(strings.TrimSpace(domain)),
		linkedInURL: strings.TrimSpace(linkedInURL),
	}
	if id.IsZero() {
		return Identity{}, e.ErrInvalidIdentity
	}
	return id, nil
}

// IsZero reports whether neither identity field is set.
func (i Identity) IsZero() bool {
	return i.domain == "" && i.linkedInURL == ""
}

// Domain returns the normalised domain and whether it is set.
func (i Identity) Domain() (string, bool) {
	return i.domain, i.domain != ""
}

// LinkedInURL returns the profile URL and whether it is set.
func (i Identity) LinkedInURL() (string, bool) {
	return i.linkedInURL, i.linkedInURL != ""
}

// DisplayName picks the company name used when none was supplied.
func (i Identity) DisplayName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i.domain != "" {
		return i.domain
	}
	return i.linkedInURL
}

func (i Identity) String() string {
	switch {
	case i.domain != "" && i.linkedInURL != "":
		return i.domain + "|" + i.linkedInURL
	case i.domain != "":
		return i.domain
	default:
		return i.linkedInURL
	}
}

// Company defines the domain model for a company that receives CVs.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID
	// Name is the display label.
	Name string
	// Domain is the company web domain, unique when present.
	Domain *string
	// LinkedInURL is the company profile URL, unique when present.
	LinkedInURL *string
	// CreatedAt is set once at creation.
	CreatedAt time.Time
}

// Submission records a CV sent to a company.
type Submission struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	CVType      CVType
	SubmittedAt time.Time
	JobTitle    *string
}
