package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/beat-interviewing/challenge-bot/internal/application"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// TestResponse is one available test in the Greenhouse list_tests response.
type TestResponse struct {
	PartnerTestID   string `json:"partner_test_id"`
	PartnerTestName string `json:"partner_test_name"`
}

// SendTestRequest is the JSON body Greenhouse sends to the send_test endpoint.
type SendTestRequest struct {
	PartnerTestID string `json:"partner_test_id"`
	Candidate     struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Email      string `json:"email"`
		ProfileURL string `json:"greenhouse_profile_url"`
	} `json:"candidate"`
	URL string `json:"url"`
}

// SendTestResponse identifies the created interview back to Greenhouse.
type SendTestResponse struct {
	PartnerInterviewID string `json:"partner_interview_id"`
}

// TestStatusResponse is the Greenhouse test_status response body.
type TestStatusResponse struct {
	PartnerStatus     string            `json:"partner_status"`
	PartnerProfileURL string            `json:"partner_profile_url"`
	PartnerScore      *int              `json:"partner_score"`
	Metadata          map[string]string `json:"metadata"`
}

// toTestResponse converts an application test listing to its JSON representation.
func toTestResponse(t application.TestListing) TestResponse {
	return TestResponse{
		PartnerTestID:   t.ID,
		PartnerTestName: t.Name,
	}
}

// toTestStatusResponse converts an application test status to its JSON representation.
func toTestStatusResponse(s *application.TestStatus) TestStatusResponse {
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return TestStatusResponse{
		PartnerStatus:     s.Status,
		PartnerProfileURL: s.ProfileURL,
		PartnerScore:      s.Score,
		Metadata:          metadata,
	}
}
