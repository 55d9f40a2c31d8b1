// Package errors defines the error taxonomy shared by the store, the
// services and the transport layer.
package errors

import (
	"fmt"
	"time"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	// ErrInvalidIdentity is returned when neither domain nor LinkedIn URL is set.
	ErrInvalidIdentity = fmt.Errorf("%w: either domain or linkedinUrl must be provided", ErrInvalidInput)
	ErrInvalidCVType   = fmt.Errorf("%w: cvType must be either \"english\" or \"german\"", ErrInvalidInput)
	ErrCooldownActive  = fmt.Errorf("CV cannot be submitted yet")
	ErrDataIntegrity   = fmt.Errorf("data integrity violation")
	ErrDuplicate       = fmt.Errorf("duplicate identity")
	ErrStore           = fmt.Errorf("store failure")
	ErrQueueClosed     = fmt.Errorf("admission queue closed")
)

// LastSubmission summarises the submission that keeps a cooldown active.
type LastSubmission struct {
	ID          string
	SubmittedAt time.Time
	JobTitle    *string
}

// CooldownError is returned by a submit whose company/type pair is still
// inside the cooldown window.
type CooldownError struct {
	DaysRemaining    int
	NextEligibleDate time.Time
	LastSubmission   LastSubmission
}

func (c *CooldownError) Error() string {
	return fmt.Sprintf("%s: %d days remaining", ErrCooldownActive.Error(), c.DaysRemaining)
}

func (c *CooldownError) Unwrap() error { return ErrCooldownActive }
