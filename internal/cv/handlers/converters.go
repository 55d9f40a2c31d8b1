package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/gartstein/cvtracker/internal/cv/models"
	"go.uber.org/zap"
)

type submissionRequest struct {
	Domain      string  `json:"domain"`
	LinkedInURL string  `json:"linkedinUrl"`
	CVType      string  `json:"cvType"`
	CompanyName string  `json:"companyName"`
	JobTitle    *string `json:"jobTitle"`
}

type seedRequest struct {
	Companies []seedEntry `json:"companies"`
}

type seedEntry struct {
	Name               string   `json:"name"`
	Domain             string   `json:"domain"`
	LinkedInURL        string   `json:"linkedin_url"`
	EnglishSubmittedAt seedTime `json:"english_submitted_at"`
	GermanSubmittedAt  seedTime `json:"german_submitted_at"`
	EnglishJobTitle    *string  `json:"english_job_title"`
	GermanJobTitle     *string  `json:"german_job_title"`
}

// seedTime accepts an RFC 3339 instant or a plain YYYY-MM-DD date (UTC
// midnight). null and "" leave it unset.
type seedTime struct {
	t *time.Time
}

var seedTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (s *seedTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range seedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			s.t = &t
			return nil
		}
	}
	return fmt.Errorf("unrecognised date %q", raw)
}

type companyDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Domain      *string `json:"domain"`
	LinkedInURL *string `json:"linkedinUrl"`
}

type companyRecordDTO struct {
	companyDTO
	CreatedAt time.Time `json:"createdAt"`
}

type lastSubmissionDTO struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	JobTitle    *string   `json:"jobTitle"`
}

type submissionDTO struct {
	ID          string        `json:"id"`
	CompanyID   string        `json:"companyId"`
	CVType      models.CVType `json:"cvType"`
	SubmittedAt time.Time     `json:"submittedAt"`
	JobTitle    *string       `json:"jobTitle"`
}

type checkResponse struct {
	CanGenerateCV     bool               `json:"canGenerateCV"`
	Company           companyDTO         `json:"company"`
	CVType            models.CVType      `json:"cvType"`
	DaysRemaining     int                `json:"daysRemaining"`
	NextEligibleDate  time.Time          `json:"nextEligibleDate"`
	NextAvailableDate *time.Time         `json:"nextAvailableDate,omitempty"`
	LastSubmission    *lastSubmissionDTO `json:"lastSubmission,omitempty"`
	Message           string             `json:"message,omitempty"`
}

type submitResponse struct {
	Success            bool               `json:"success"`
	Message            string             `json:"message"`
	CanGenerateCV      *bool              `json:"canGenerateCV,omitempty"`
	Submission         submissionDTO      `json:"submission"`
	Company            companyDTO         `json:"company"`
	PreviousSubmission *lastSubmissionDTO `json:"previousSubmission,omitempty"`
}

type cooldownResponse struct {
	Error             string            `json:"error"`
	DaysRemaining     int               `json:"daysRemaining"`
	NextAvailableDate time.Time         `json:"nextAvailableDate"`
	NextEligibleDate  time.Time         `json:"nextEligibleDate"`
	LastSubmission    lastSubmissionDTO `json:"lastSubmission"`
}

type typeStatusDTO struct {
	LastSubmittedAt   *time.Time `json:"lastSubmittedAt"`
	JobTitle          *string    `json:"jobTitle,omitempty"`
	DaysRemaining     int        `json:"daysRemaining"`
	CanSubmit         bool       `json:"canSubmit"`
	NextAvailableDate time.Time  `json:"nextAvailableDate"`
}

type companyStatusDTO struct {
	companyRecordDTO
	English          typeStatusDTO `json:"english"`
	German           typeStatusDTO `json:"german"`
	TotalSubmissions int           `json:"totalSubmissions"`
}

type listResponse struct {
	Success   bool               `json:"success"`
	Count     int                `json:"count"`
	Companies []companyStatusDTO `json:"companies"`
}

type historyResponse struct {
	Success     bool             `json:"success"`
	Company     companyRecordDTO `json:"company"`
	Count       int              `json:"count"`
	Submissions []submissionDTO  `json:"submissions"`
}

type deleteResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Company companyRecordDTO `json:"company"`
}

type seedResultDTO struct {
	companyRecordDTO
	Status      models.SeedStatus `json:"status"`
	Submissions []submissionDTO   `json:"submissions"`
}

type seedResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Created          int             `json:"created"`
	Existing         int             `json:"existing"`
	TotalSubmissions int             `json:"totalSubmissions"`
	Companies        []seedResultDTO `json:"companies"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	Database  string    `json:"database"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

// toModel validates the payload. Identity is checked before cvType.
func (r submissionRequest) toModel() (models.SubmissionRequest, error) {
	identity, err := models.NewIdentity(r.Domain, r.LinkedInURL)
	if err != nil {
		return models.SubmissionRequest{}, err
	}
	cvType, err := models.ParseCVType(r.CVType)
	if err != nil {
		return models.SubmissionRequest{}, err
	}
	req := models.SubmissionRequest{
		Identity:    identity,
		CVType:      cvType,
		CompanyName: strings.TrimSpace(r.CompanyName),
	}
	if r.JobTitle != nil && strings.TrimSpace(*r.JobTitle) != "" {
		title := strings.TrimSpace(*r.JobTitle)
		req.JobTitle = &title
	}
	return req, nil
}

func (r seedRequest) toModel() []models.SeedEntry {
	entries := make([]models.SeedEntry, 0, len(r.Companies))
	for _, c := range r.Companies {
		entries = append(entries, models.SeedEntry{
			Name:               strings.TrimSpace(c.Name),
			Domain:             c.Domain,
			LinkedInURL:        c.LinkedInURL,
			EnglishSubmittedAt: c.EnglishSubmittedAt.t,
			GermanSubmittedAt:  c.GermanSubmittedAt.t,
			EnglishJobTitle:    c.EnglishJobTitle,
			GermanJobTitle:     c.GermanJobTitle,
		})
	}
	return entries
}

func companyToDTO(c *models.Company) companyDTO {
	return companyDTO{
		ID:          c.ID.String(),
		Name:        c.Name,
		Domain:      c.Domain,
		LinkedInURL: c.LinkedInURL,
	}
}

func companyToRecord(c *models.Company) companyRecordDTO {
	return companyRecordDTO{companyDTO: companyToDTO(c), CreatedAt: c.CreatedAt}
}

func submissionToDTO(s *models.Submission) submissionDTO {
	return submissionDTO{
		ID:          s.ID.String(),
		CompanyID:   s.CompanyID.String(),
		CVType:      s.CVType,
		SubmittedAt: s.SubmittedAt,
		JobTitle:    s.JobTitle,
	}
}

func submissionsToDTO(subs []models.Submission) []submissionDTO {
	out := make([]submissionDTO, 0, len(subs))
	for i := range subs {
		out = append(out, submissionToDTO(&subs[i]))
	}
	return out
}

func lastSubmissionToDTO(s *models.Submission) *lastSubmissionDTO {
	if s == nil {
		return nil
	}
	return &lastSubmissionDTO{ID: s.ID.String(), SubmittedAt: s.SubmittedAt, JobTitle: s.JobTitle}
}

func eligibilityToResponse(el *models.Eligibility) checkResponse {
	resp := checkResponse{
		CanGenerateCV:    el.Eligible,
		Company:          companyToDTO(el.Company),
		CVType:           el.CVType,
		DaysRemaining:    el.DaysRemaining,
		NextEligibleDate: el.NextEligibleDate,
		LastSubmission:   lastSubmissionToDTO(el.LastSubmission),
	}
	if el.LastSubmission != nil {
		next := el.NextEligibleDate
		resp.NextAvailableDate = &next
	} else {
		resp.Message = "No previous submission found. CV can be generated."
	}
	return resp
}

func receiptToResponse(r *models.SubmissionReceipt) submitResponse {
	return submitResponse{
		Success:    true,
		Message:    "CV submission recorded successfully",
		Submission: submissionToDTO(r.Submission),
		Company:    companyToDTO(r.Company),
	}
}

func typeStatusToDTO(s models.TypeStatus) typeStatusDTO {
	return typeStatusDTO{
		LastSubmittedAt:   s.LastSubmittedAt,
		JobTitle:          s.JobTitle,
		DaysRemaining:     s.DaysRemaining,
		CanSubmit:         s.CanSubmit,
		NextAvailableDate: s.NextAvailableDate,
	}
}

func statusesToResponse(statuses []models.CompanyStatus) listResponse {
	companies := make([]companyStatusDTO, 0, len(statuses))
	for i := range statuses {
		s := &statuses[i]
		companies = append(companies, companyStatusDTO{
			companyRecordDTO: companyToRecord(&s.Company),
			English:          typeStatusToDTO(s.English),
			German:           typeStatusToDTO(s.German),
			TotalSubmissions: s.TotalSubmissions,
		})
	}
	return listResponse{Success: true, Count: len(companies), Companies: companies}
}

func seedResultsToResponse(results []models.SeedResult) seedResponse {
	resp := seedResponse{Success: true, Companies: make([]seedResultDTO, 0, len(results))}
	for i := range results {
		r := &results[i]
		switch r.Status {
		case models.SeedCreated:
			resp.Created++
		case models.SeedExisting:
			resp.Existing++
		}
		resp.TotalSubmissions += len(r.Submissions)
		resp.Companies = append(resp.Companies, seedResultDTO{
			companyRecordDTO: companyToRecord(&r.Company),
			Status:           r.Status,
			Submissions:      submissionsToDTO(r.Submissions),
		})
	}
	resp.Message = fmt.Sprintf("Seeded %d new companies (%d already existed), %d submission records created",
		resp.Created, resp.Existing, resp.TotalSubmissions)
	return resp
}

// mapServiceError maps domain or repository errors to an HTTP status and body.
func (h *CVHandler) mapServiceError(err error) (int, any) {
	var cooldownErr *e.CooldownError
	var schemaErr *SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, errorResponse{Error: "Invalid seed payload", Details: schemaErr.Details}
	case errors.As(err, &cooldownErr):
		return http.StatusBadRequest, cooldownResponse{
			Error:             e.ErrCooldownActive.Error(),
			DaysRemaining:     cooldownErr.DaysRemaining,
			NextAvailableDate: cooldownErr.NextEligibleDate,
			NextEligibleDate:  cooldownErr.NextEligibleDate,
			LastSubmission: lastSubmissionDTO{
				ID:          cooldownErr.LastSubmission.ID,
				SubmittedAt: cooldownErr.LastSubmission.SubmittedAt,
				JobTitle:    cooldownErr.LastSubmission.JobTitle,
			},
		}
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, e.ErrQueueClosed):
		return http.StatusServiceUnavailable, errorResponse{Error: "Service Unavailable", Message: err.Error()}
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
