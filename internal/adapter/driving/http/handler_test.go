package httphandler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/beat-interviewing/challenge-bot/internal/adapter/driving/http"
	"github.com/beat-interviewing/challenge-bot/internal/application"
	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
	"github.com/beat-interviewing/challenge-bot/internal/i18n"
)

// --- Mock implementations ---

type mockRepoManager struct {
	searchResults []model.RepoListing
	searchErr     error

	lookupLogin string
	lookupErr   error

	createdIssueTitle string
	createdIssueBody  string
	issueNumber       int

	comments []string
}

func (m *mockRepoManager) CreateFromTemplate(_ context.Context, _, _, _, _ string) error {
	return nil
}
func (m *mockRepoManager) DeleteRepo(_ context.Context, _, _ string) error          { return nil }
func (m *mockRepoManager) AddCollaborator(_ context.Context, _, _, _ string) error  { return nil }
func (m *mockRepoManager) RemoveCollaborator(_ context.Context, _, _, _ string) error {
	return nil
}
func (m *mockRepoManager) CreateIssue(_ context.Context, _, _, title, body string) (int, error) {
	m.createdIssueTitle = title
	m.createdIssueBody = body
	return m.issueNumber, nil
}
func (m *mockRepoManager) GetIssueBody(_ context.Context, _ model.IssueRef) (string, error) {
	return "", nil
}
func (m *mockRepoManager) UpdateIssue(_ context.Context, _ model.IssueRef, _ model.IssueUpdate) error {
	return nil
}
func (m *mockRepoManager) CreateIssueComment(_ context.Context, _ model.IssueRef, body string) error {
	m.comments = append(m.comments, body)
	return nil
}
func (m *mockRepoManager) CreatePull(_ context.Context, _, _ string, _ model.PullRequestSpec) (*model.PullRef, error) {
	return &model.PullRef{Number: 1}, nil
}
func (m *mockRepoManager) CreatePullReview(_ context.Context, _, _ string, _ int, _ string, _ []model.ReviewCommentSpec) error {
	return nil
}
func (m *mockRepoManager) SearchRepos(_ context.Context, _ string) ([]model.RepoListing, error) {
	return m.searchResults, m.searchErr
}
func (m *mockRepoManager) LookupUserByEmail(_ context.Context, _ string) (string, error) {
	return m.lookupLogin, m.lookupErr
}

type mockChallengeStore struct {
	challenges map[string]*model.Challenge
}

func (m *mockChallengeStore) Get(_ context.Context, ref model.IssueRef) (*model.Challenge, error) {
	return m.challenges[ref.Key()], nil
}
func (m *mockChallengeStore) Set(_ context.Context, ref model.IssueRef, c *model.Challenge) error {
	if m.challenges == nil {
		m.challenges = map[string]*model.Challenge{}
	}
	m.challenges[ref.Key()] = c
	return nil
}

type mockNotifier struct {
	urls []string
}

func (m *mockNotifier) NotifyCompleted(_ context.Context, url string) error {
	m.urls = append(m.urls, url)
	return nil
}

type mockConfigReader struct{}

func (m *mockConfigReader) ReadAssignmentConfig(_ context.Context, _, _ string) (*model.AssignmentConfig, error) {
	return &model.AssignmentConfig{}, nil
}

// --- Fixture ---

type fixture struct {
	repos    *mockRepoManager
	store    *mockChallengeStore
	notifier *mockNotifier
	server   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := &mockRepoManager{issueNumber: 7}
	store := &mockChallengeStore{}
	notifier := &mockNotifier{}

	renderer, err := i18n.NewRenderer("en")
	require.NoError(t, err)
	replier := i18n.NewReplier(renderer, repos)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	challenges := application.NewChallengeService(
		store, repos, &mockConfigReader{}, notifier, replier, application.NewMirror(nil, 4),
	)
	greenhouse := application.NewGreenhouseService(repos, store, notifier, renderer, "acme")

	h := httphandler.NewHandler(challenges, greenhouse, "", logger)
	return &fixture{
		repos:    repos,
		store:    store,
		notifier: notifier,
		server:   httphandler.NewServeMux(h, "gh-api-key", logger),
	}
}

func (f *fixture) greenhouseRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.SetBasicAuth("gh-api-key", "")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGreenhouseRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/greenhouse/challenges", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Greenhouse")
}

func TestGreenhouseRejectsWrongKey(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/greenhouse/challenges", nil)
	req.SetBasicAuth("not-the-key", "")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTests(t *testing.T) {
	f := newFixture(t)
	f.repos.searchResults = []model.RepoListing{
		{FullName: "acme/ruby", Description: "Ruby take-home"},
		{FullName: "acme/go", Description: "Go take-home"},
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodGet, "/api/greenhouse/challenges", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		ID   string `json:"partner_test_id"`
		Name string `json:"partner_test_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "acme/ruby", resp[0].ID)
	assert.Equal(t, "Ruby take-home", resp[0].Name)
}

func TestSendTest(t *testing.T) {
	f := newFixture(t)
	f.repos.lookupLogin = "hpotter"

	body := `{
		"partner_test_id": "acme/ruby",
		"candidate": {
			"first_name": "Harry",
			"last_name": "Potter",
			"email": "hpotter@hogwarts.edu",
			"greenhouse_profile_url": "https://app.greenhouse.io/people/17681532"
		},
		"url": "https://app.greenhouse.io/take_home_tests/12345"
	}`

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodPost, "/api/greenhouse/challenges", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PartnerInterviewID string `json:"partner_interview_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acme/ruby/7", resp.PartnerInterviewID)
	assert.Contains(t, f.repos.createdIssueTitle, "Harry Potter")
	assert.Contains(t, f.repos.createdIssueBody, "@hpotter")
}

func TestSendTestUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.repos.lookupErr = driven.ErrUserNotFound

	body := `{"partner_test_id": "acme/ruby", "candidate": {"email": "nobody@example.com"}}`

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodPost, "/api/greenhouse/challenges", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTestStatusGraded(t *testing.T) {
	f := newFixture(t)

	grade := 85
	gradedAt := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	ref := model.IssueRef{Owner: "acme", Repo: "interviews", Number: 3}
	require.NoError(t, f.store.Set(context.Background(), ref, &model.Challenge{
		RepoOwner:  "acme",
		Repo:       "ruby-joe-abc",
		Candidate:  "joe",
		Assignment: "ruby",
		Status:     model.StatusGraded,
		Grade:      &grade,
		GradedAt:   &gradedAt,
		GradedBy:   "reviewer",
	}))

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodGet,
		"/api/greenhouse/challenges/status?partner_interview_id=acme/interviews/3", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"partner_status"`
		Score  *int   `json:"partner_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Status)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 85, *resp.Score)
}

func TestMarkCompleted(t *testing.T) {
	f := newFixture(t)

	ref := model.IssueRef{Owner: "acme", Repo: "interviews", Number: 3}
	require.NoError(t, f.store.Set(context.Background(), ref, &model.Challenge{
		Repo:        "ruby-joe-abc",
		Status:      model.StatusGraded,
		TrackingURL: "https://app.greenhouse.io/take_home_tests/12345",
	}))

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodPatch,
		"/api/greenhouse/challenges/status?partner_interview_id=acme/interviews/3", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"https://app.greenhouse.io/take_home_tests/12345"}, f.notifier.urls)
}

func TestIngestError(t *testing.T) {
	f := newFixture(t)

	body := `{"error": "malformed response", "endpoint": "test_status"}`
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, f.greenhouseRequest(http.MethodPost, "/api/greenhouse/errors", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookDispatchesHelpCommand(t *testing.T) {
	f := newFixture(t)

	payload := `{
		"action": "created",
		"issue": {"number": 1},
		"comment": {"body": "/help"},
		"repository": {"name": "interviews", "owner": {"login": "acme"}},
		"sender": {"login": "interviewer", "type": "User"}
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/github/webhooks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "issue_comment")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.repos.comments, 1)
	assert.Contains(t, f.repos.comments[0], "/challenge")
}

func TestWebhookIgnoresBotComments(t *testing.T) {
	f := newFixture(t)

	payload := `{
		"action": "created",
		"issue": {"number": 1},
		"comment": {"body": "/help"},
		"repository": {"name": "interviews", "owner": {"login": "acme"}},
		"sender": {"login": "challenge-bot[bot]", "type": "Bot"}
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/github/webhooks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "issue_comment")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.repos.comments)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/github/webhooks", strings.NewReader(`{"zen": "ok"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "ping")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.repos.comments)
}
