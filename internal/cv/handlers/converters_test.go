package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSeedTime_Unmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *time.Time
		wantErr  bool
	}{
		{name: "null", input: `null`},
		{name: "empty", input: `""`},
		{name: "date only", input: `"2024-02-10"`, expected: ptrTime(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))},
		{name: "rfc3339 with offset", input: `"2024-02-10T12:00:00+02:00"`, expected: ptrTime(time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC))},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st seedTime
			err := json.Unmarshal([]byte(tt.input), &st)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, st.t)
				return
			}
			require.NotNil(t, st.t)
			assert.True(t, tt.expected.Equal(*st.t))
			assert.Equal(t, time.UTC, st.t.Location())
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestSubmissionRequest_ToModel(t *testing.T) {
	req, err := submissionRequest{Domain: " Acme.IO ", CVType: "german", CompanyName: "  Acme  "}.toModel()
	require.NoError(t, err)
	domain, ok := req.Identity.Domain()
	assert.True(t, ok)
	assert.Equal(t, "acme.io", domain)
	assert.Equal(t, models.German, req.CVType)
	assert.Equal(t, "Acme", req.CompanyName)

	_, err = submissionRequest{CVType: "english"}.toModel()
	assert.ErrorIs(t, err, e.ErrInvalidIdentity)

	_, err = submissionRequest{Domain: "acme.io"}.toModel()
	assert.ErrorIs(t, err, e.ErrInvalidCVType)
}

func TestMapServiceError(t *testing.T) {
	h := &CVHandler{logger: zaptest.NewLogger(t)}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "cooldown", err: &e.CooldownError{DaysRemaining: 3}, expectedStatus: http.StatusBadRequest},
		{name: "invalid input", err: e.ErrInvalidCVType, expectedStatus: http.StatusBadRequest},
		{name: "schema", err: &SchemaError{Details: []string{"companies: required"}}, expectedStatus: http.StatusBadRequest},
		{name: "queue closed", err: e.ErrQueueClosed, expectedStatus: http.StatusServiceUnavailable},
		{name: "not found", err: e.ErrNotFound, expectedStatus: http.StatusInternalServerError},
		{name: "integrity", err: e.ErrDataIntegrity, expectedStatus: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := h.mapServiceError(tt.err)
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}
