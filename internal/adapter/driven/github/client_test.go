package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/beat-interviewing/challenge-bot/internal/adapter/driven/github"
	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client
}

func TestCreateFromTemplate(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/ruby/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"name": "ruby-joe-abc"}`)
	}))

	err := client.CreateFromTemplate(context.Background(), "acme", "ruby", "acme", "ruby-joe-abc")
	require.NoError(t, err)

	assert.Equal(t, "acme", gotBody["owner"])
	assert.Equal(t, "ruby-joe-abc", gotBody["name"])
	assert.Equal(t, true, gotBody["private"])
}

func TestCreateFromTemplateNameTaken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "name already exists on this account"}`)
	}))

	err := client.CreateFromTemplate(context.Background(), "acme", "ruby", "acme", "ruby-joe-abc")
	assert.ErrorIs(t, err, driven.ErrRepoNameTaken)
}

func TestUpdateRefConflict(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/ruby-joe-abc/git/refs/heads/main", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Update is not a fast forward"}`)
	}))

	err := client.UpdateRef(context.Background(), "acme", "ruby-joe-abc", "main", "abc123")
	assert.ErrorIs(t, err, driven.ErrRefConflict)
}

func TestUpdateRefSendsNoForce(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/repos/acme/ruby-joe-abc/git/refs/heads/main", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"sha":"abc123"`)
		assert.Contains(t, string(body), `"force":false`)

		fmt.Fprint(w, `{"ref": "refs/heads/main", "object": {"sha": "abc123", "type": "commit"}}`)
	}))

	err := client.UpdateRef(context.Background(), "acme", "ruby-joe-abc", "main", "abc123")
	require.NoError(t, err)
}

func TestCreateRefAndBlobAndCommit(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		switch r.URL.Path {
		case "/repos/acme/ruby/git/refs":
			assert.Contains(t, string(body), `"ref":"refs/heads/challenge"`)
			assert.Contains(t, string(body), `"sha":"base123"`)
			fmt.Fprint(w, `{"ref": "refs/heads/challenge"}`)
		case "/repos/acme/ruby/git/blobs":
			assert.Contains(t, string(body), `"encoding":"base64"`)
			fmt.Fprint(w, `{"sha": "blob123"}`)
		case "/repos/acme/ruby/git/commits":
			assert.Contains(t, string(body), `"tree":"tree123"`)
			assert.Contains(t, string(body), `"parents":["base123"]`)
			fmt.Fprint(w, `{"sha": "commit123"}`)
		default:
			t.Fatalf("unexpected request to %s", r.URL.Path)
		}
	}))

	ctx := context.Background()

	require.NoError(t, client.CreateRef(ctx, "acme", "ruby", "challenge", "base123"))

	blobSHA, err := client.CreateBlob(ctx, "acme", "ruby", "aGVsbG8=", "base64")
	require.NoError(t, err)
	assert.Equal(t, "blob123", blobSHA)

	commitSHA, err := client.CreateCommit(ctx, "acme", "ruby", "Copy assignment files", "tree123", []string{"base123"})
	require.NoError(t, err)
	assert.Equal(t, "commit123", commitSHA)
}

func TestGetRef(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/ruby/git/ref/heads/main", r.URL.Path)
		fmt.Fprint(w, `{"ref": "refs/heads/main", "object": {"sha": "abc123", "type": "commit"}}`)
	}))

	sha, err := client.GetRef(context.Background(), "acme", "ruby", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
}

func TestLookupUserByEmailViaUserSearch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/users", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "in:email")
		fmt.Fprint(w, `{"total_count": 1, "items": [{"login": "hpotter"}]}`)
	}))

	login, err := client.LookupUserByEmail(context.Background(), "hpotter@hogwarts.edu")
	require.NoError(t, err)
	assert.Equal(t, "hpotter", login)
}

func TestLookupUserByEmailFallsBackToCommits(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/users":
			fmt.Fprint(w, `{"total_count": 0, "items": []}`)
		case "/search/commits":
			assert.Contains(t, r.URL.Query().Get("q"), "author-email:")
			fmt.Fprint(w, `{"total_count": 1, "items": [{"author": {"login": "hpotter"}}]}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))

	login, err := client.LookupUserByEmail(context.Background(), "hpotter@hogwarts.edu")
	require.NoError(t, err)
	assert.Equal(t, "hpotter", login)
}

func TestLookupUserByEmailNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 0, "items": []}`)
	}))

	_, err := client.LookupUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, driven.ErrUserNotFound)
}

func TestReadAssignmentConfig(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte(`
challenge:
  create_pull_request:
    head: solution
    base: main
    title: Solution
    paths:
      - "src/**"
review:
  copy:
    head: main
    base: review
    paths:
      - "src/**"
`))
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/ruby/contents/.github/assignment.yml", r.URL.Path)
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, content)
	}))

	config, err := client.ReadAssignmentConfig(context.Background(), "acme", "ruby")
	require.NoError(t, err)

	require.NotNil(t, config.Challenge.CreatePullRequest)
	assert.Equal(t, "solution", config.Challenge.CreatePullRequest.Head)
	assert.Equal(t, []string{"src/**"}, config.Challenge.CreatePullRequest.Paths)
	require.NotNil(t, config.Review.Copy)
	assert.Equal(t, "review", config.Review.Copy.Base)
}

func TestReadAssignmentConfigMissingFileDefaults(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	config, err := client.ReadAssignmentConfig(context.Background(), "acme", "ruby")
	require.NoError(t, err)
	assert.Nil(t, config.Challenge.CreatePullRequest)
	assert.Nil(t, config.Review.Copy)
	assert.Empty(t, config.Review.Comments)
}

func TestIssueMetaStoreRoundTrip(t *testing.T) {
	body := "Please challenge @joe."
	var edited struct {
		Body string `json:"body"`
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/interviews/issues/1", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			resp, _ := json.Marshal(map[string]any{"number": 1, "body": body})
			w.Write(resp)
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&edited))
			body = edited.Body
			fmt.Fprint(w, `{"number": 1}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))

	store := ghAdapter.NewIssueMetaStore(client)
	ref := model.IssueRef{Owner: "acme", Repo: "interviews", Number: 1}

	// Absent sentinel reads as no challenge.
	got, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Nil(t, got)

	grade := 85
	want := &model.Challenge{
		RepoOwner:  "acme",
		Repo:       "ruby-joe-abc",
		Candidate:  "joe",
		Assignment: "ruby",
		Status:     model.StatusGraded,
		Grade:      &grade,
	}
	require.NoError(t, store.Set(context.Background(), ref, want))

	// The human-authored prefix survives the rewrite.
	assert.Contains(t, body, "Please challenge @joe.")
	assert.Contains(t, body, "<!-- challenge-bot = ")

	got, err = store.Get(context.Background(), ref)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Repo, got.Repo)
	assert.Equal(t, model.StatusGraded, got.Status)
	require.NotNil(t, got.Grade)
	assert.Equal(t, 85, *got.Grade)

	// A second Set replaces the section instead of appending another.
	require.NoError(t, store.Set(context.Background(), ref, want))
	assert.Equal(t, 1, strings.Count(body, "<!-- challenge-bot = "))
}

func TestIssueMetaStoreCorruptPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, _ := json.Marshal(map[string]any{
			"number": 1,
			"body":   "hi\n\n<!-- challenge-bot = {not json} -->",
		})
		w.Write(resp)
	}))

	store := ghAdapter.NewIssueMetaStore(client)
	ref := model.IssueRef{Owner: "acme", Repo: "interviews", Number: 1}

	_, err := store.Get(context.Background(), ref)
	assert.ErrorIs(t, err, driven.ErrCorruptMetadata)
}

func TestCreatePullReview(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/ruby-joe-abc/pulls/2/reviews", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		fmt.Fprint(w, `{"id": 99}`)
	}))

	comments := []model.ReviewCommentSpec{
		{Path: "src/main.rb", Line: 3, Side: "RIGHT", Body: "How does this scale?"},
	}
	err := client.CreatePullReview(context.Background(), "acme", "ruby-joe-abc", 2, "head-sha", comments)
	require.NoError(t, err)

	assert.Equal(t, "COMMENT", gotBody["event"])
	assert.Equal(t, "head-sha", gotBody["commit_id"])
	list, ok := gotBody["comments"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
}
