package models

import (
	"testing"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		name        string
		domain      string
		linkedIn    string
		wantDomain  string
		wantURL     string
		expectError bool
	}{
		{name: "domain only", domain: " Example.COM ", wantDomain: "example.com"},
		{name: "url only", linkedIn: " https://linkedin.com/company/acme ", wantURL: "https://linkedin.com/company/acme"},
		{name: "both", domain: "acme.io", linkedIn: "https://linkedin.com/company/acme", wantDomain: "acme.io", wantURL: "https://linkedin.com/company/acme"},
		{name: "neither", expectError: true},
		{name: "whitespace only", domain: "  ", linkedIn: "\t", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewIdentity(tt.domain, tt.linkedIn)
			if tt.expectError {
				assert.ErrorIs(t, err, e.ErrInvalidIdentity)
				assert.ErrorIs(t, err, e.ErrInvalidInput)
				assert.True(t, id.IsZero())
				return
			}
			require.NoError(t, err)
			d, _ := id.Domain()
			u, _ := id.LinkedInURL()
			assert.Equal(t, tt.wantDomain, d)
			assert.Equal(t, tt.wantURL, u)
		})
	}
}

func TestIdentity_DisplayName(t *testing.T) {
	byDomain, _ := NewIdentity("acme.io", "https://linkedin.com/company/acme")
	byURL, _ := NewIdentity("", "https://linkedin.com/company/acme")

	assert.Equal(t, "Acme", byDomain.DisplayName(" Acme "))
	assert.Equal(t, "acme.io", byDomain.DisplayName(""))
	assert.Equal(t, "https://linkedin.com/company/acme", byURL.DisplayName(""))
}

func TestParseCVType(t *testing.T) {
	for _, s := range []string{"english", "german"} {
		ct, err := ParseCVType(s)
		require.NoError(t, err)
		assert.Equal(t, CVType(s), ct)
	}
	for _, s := range []string{"", "English", "french"} {
		_, err := ParseCVType(s)
		assert.ErrorIs(t, err, e.ErrInvalidCVType, s)
	}
}
