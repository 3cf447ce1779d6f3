package service

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BountyBot/internal/biz"
	"BountyBot/internal/conf"
	"BountyBot/internal/data"
	"BountyBot/pkg/crypto"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "hook-secret"

// MockCommentReactor is a mock implementation of biz.CommentReactor for testing.
type MockCommentReactor struct {
	mock.Mock
}

func (m *MockCommentReactor) AddReaction(ctx context.Context, repository string, commentID int64, reaction string) error {
	args := m.Called(ctx, repository, commentID, reaction)
	return args.Error(0)
}

type testEnv struct {
	srv      *http.Server
	registry *biz.BreakerRegistry
	reactor  *MockCommentReactor
}

// setupTestServer wires both services onto a kratos HTTP server backed by in-memory stores.
func setupTestServer(t *testing.T, secret string) *testEnv {
	t.Helper()
	logger := log.DefaultLogger

	registry := biz.NewBreakerRegistryFromConf(&conf.Breaker{
		KeyPrefix: "test",
		Services: map[string]*conf.BreakerService{
			biz.BreakerGitHub:   {FailureThreshold: 3, ResetTimeout: time.Minute, FailureWindow: time.Minute, SuccessThreshold: 1},
			biz.BreakerPayments: {FailureThreshold: 1, ResetTimeout: time.Minute, FailureWindow: time.Minute, SuccessThreshold: 1},
		},
	}, data.NewMemoryCounterStore(64), nil, logger)

	reactor := &MockCommentReactor{}
	ghConf := &conf.GitHub{WebhookSecret: secret}
	uc := biz.NewCommandUsecase(registry, nil, reactor, ghConf, logger)

	srv := http.NewServer()
	RegisterCommandServiceHTTPServer(srv, NewCommandService(uc, ghConf, logger))
	RegisterBreakerServiceHTTPServer(srv, NewBreakerService(registry, logger))

	return &testEnv{srv: srv, registry: registry, reactor: reactor}
}

func (e *testEnv) do(t *testing.T, req *nethttp.Request) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

func webhookRequest(event, delivery string, payload []byte, signature string) *nethttp.Request {
	req := httptest.NewRequest(nethttp.MethodPost, "/v1/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	if delivery != "" {
		req.Header.Set("X-GitHub-Delivery", delivery)
	}
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

const issueCommentPayloadJSON = `{
  "action": "created",
  "issue": {"number": 42, "pull_request": {"url": "https://api.github.com/repos/acme/widgets/pulls/42"}},
  "comment": {"id": 1001, "body": "Ready! /submit #42", "user": {"login": "octocat"}},
  "repository": {"full_name": "acme/widgets"}
}`

func TestCommandService_ParseCommand(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(nethttp.MethodPost, "/v1/commands/parse",
		bytes.NewBufferString(`{"body":"Looks good @bountydotnew 100 EUR"}`))
	req.Header.Set("Content-Type", "application/json")

	code, body := env.do(t, req)
	require.Equal(t, nethttp.StatusOK, code)

	cmd, ok := body["command"].(map[string]interface{})
	require.True(t, ok, "command should be an object")
	assert.Equal(t, "create", cmd["type"])
	assert.Equal(t, 100.0, cmd["amount"])
	assert.Equal(t, "EUR", cmd["currency"])
	assert.Equal(t, "Looks good ", body["remainder"])
}

func TestCommandService_ParseCommand_NoCommand(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(nethttp.MethodPost, "/v1/commands/parse", bytes.NewBufferString(`{"body":"just chatting"}`))
	req.Header.Set("Content-Type", "application/json")

	code, body := env.do(t, req)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Nil(t, body["command"])
	assert.Equal(t, "just chatting", body["remainder"])
}

func TestCommandService_ParseCommand_BadJSON(t *testing.T) {
	env := setupTestServer(t, "")

	req := httptest.NewRequest(nethttp.MethodPost, "/v1/commands/parse", bytes.NewBufferString(`{"body":`))
	req.Header.Set("Content-Type", "application/json")

	code, _ := env.do(t, req)
	assert.Equal(t, nethttp.StatusBadRequest, code)
}

func TestCommandService_GitHubWebhook(t *testing.T) {
	env := setupTestServer(t, testSecret)
	env.reactor.On("AddReaction", mock.Anything, "acme/widgets", int64(1001), "eyes").Return(nil).Once()

	payload := []byte(issueCommentPayloadJSON)
	code, body := env.do(t, webhookRequest(EventIssueComment, "delivery-123", payload, crypto.Sign([]byte(testSecret), payload)))
	require.Equal(t, nethttp.StatusOK, code)

	assert.Equal(t, "delivery-123", body["delivery_id"])
	assert.Equal(t, EventIssueComment, body["event"])
	assert.Equal(t, true, body["handled"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, true, result["acknowledged"])
	assert.Equal(t, "Ready! ", result["remainder"])
	cmd := result["command"].(map[string]interface{})
	assert.Equal(t, "submit", cmd["type"])
	assert.Equal(t, 42.0, cmd["prNumber"])

	env.reactor.AssertExpectations(t)
}

func TestCommandService_GitHubWebhook_Signature(t *testing.T) {
	env := setupTestServer(t, testSecret)
	payload := []byte(issueCommentPayloadJSON)

	t.Run("missing", func(t *testing.T) {
		code, body := env.do(t, webhookRequest(EventIssueComment, "d-1", payload, ""))
		assert.Equal(t, nethttp.StatusUnauthorized, code)
		assert.Equal(t, ReasonInvalidSignature, body["reason"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		code, _ := env.do(t, webhookRequest(EventIssueComment, "d-2", payload, crypto.Sign([]byte("other"), payload)))
		assert.Equal(t, nethttp.StatusUnauthorized, code)
	})

	env.reactor.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommandService_GitHubWebhook_NoSecretSkipsVerification(t *testing.T) {
	env := setupTestServer(t, "")
	env.reactor.On("AddReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	code, body := env.do(t, webhookRequest(EventIssueComment, "", []byte(issueCommentPayloadJSON), ""))
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, true, body["handled"])
	// A delivery id is generated when GitHub did not send one
	assert.Len(t, body["delivery_id"], 36)
}

func TestCommandService_GitHubWebhook_IgnoredEvents(t *testing.T) {
	env := setupTestServer(t, "")

	tests := []struct {
		name    string
		event   string
		payload string
	}{
		{"ping", EventPing, `{"zen":"Keep it logically awesome."}`},
		{"push", "push", `{"ref":"refs/heads/main"}`},
		{"deleted comment", EventIssueComment, `{"action":"deleted","comment":{"id":1,"body":"/merge #1"},"repository":{"full_name":"acme/widgets"}}`},
		{"closed pull request", EventPullRequest, `{"action":"closed","number":3,"pull_request":{"body":"/merge #3"},"repository":{"full_name":"acme/widgets"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, webhookRequest(tt.event, "d-"+tt.name, []byte(tt.payload), ""))
			require.Equal(t, nethttp.StatusOK, code)
			assert.Equal(t, false, body["handled"])
			assert.Nil(t, body["result"])
		})
	}
}

func TestCommandService_GitHubWebhook_PullRequestBody(t *testing.T) {
	env := setupTestServer(t, "")

	payload := `{"action":"opened","number":9,"pull_request":{"body":"Closes #3\n@bountydotnew submit","user":{"login":"dev"}},"repository":{"full_name":"acme/widgets"}}`
	code, body := env.do(t, webhookRequest(EventPullRequest, "d-pr", []byte(payload), ""))
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, true, body["handled"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, "submit", result["command"].(map[string]interface{})["type"])
	// No comment id to react to
	assert.Equal(t, false, result["acknowledged"])
	env.reactor.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecodeCommentEvent_PullRequestFlag(t *testing.T) {
	ev, err := decodeCommentEvent(EventIssueComment, []byte(issueCommentPayloadJSON))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.IsPullRequest)
	assert.Equal(t, int64(1001), ev.CommentID)

	ev, err = decodeCommentEvent(EventIssueComment, []byte(`{"action":"created","issue":{"number":7,"pull_request":null},"comment":{"id":5,"body":"/merge #7","user":{"login":"dev"}},"repository":{"full_name":"acme/widgets"}}`))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.False(t, ev.IsPullRequest)

	ev, err = decodeCommentEvent(EventPullRequest, []byte(`{"action":"opened","number":9,"pull_request":{"body":"/submit #9","user":{"login":"dev"}},"repository":{"full_name":"acme/widgets"}}`))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.IsPullRequest)
}

func TestCommandService_GitHubWebhook_Malformed(t *testing.T) {
	env := setupTestServer(t, "")

	code, body := env.do(t, webhookRequest(EventIssueComment, "d-bad", []byte(`not json`), ""))
	assert.Equal(t, nethttp.StatusBadRequest, code)
	assert.Equal(t, ReasonBadRequest, body["reason"])

	code, _ = env.do(t, webhookRequest(EventIssueComment, "d-norepo", []byte(`{"action":"created","comment":{"id":1,"body":"/merge #1"}}`), ""))
	assert.Equal(t, nethttp.StatusBadRequest, code)
}

func TestBreakerService_ListGetReset(t *testing.T) {
	env := setupTestServer(t, "")
	ctx := context.Background()

	payments := env.registry.Get(biz.BreakerPayments)
	require.NoError(t, payments.RecordFailure(ctx))

	code, body := env.do(t, httptest.NewRequest(nethttp.MethodGet, "/v1/breakers", nil))
	require.Equal(t, nethttp.StatusOK, code)
	breakers := body["breakers"].([]interface{})
	require.Len(t, breakers, 4)
	names := make([]string, 0, len(breakers))
	for _, b := range breakers {
		names = append(names, b.(map[string]interface{})["name"].(string))
	}
	assert.Equal(t, []string{"billing", "email", "github", "payments"}, names)

	code, body = env.do(t, httptest.NewRequest(nethttp.MethodGet, "/v1/breakers/payments", nil))
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "OPEN", body["state"])
	assert.Equal(t, 1.0, body["failures"])
	assert.NotEmpty(t, body["opened_at"])

	code, body = env.do(t, httptest.NewRequest(nethttp.MethodPost, "/v1/breakers/payments/reset", nil))
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "CLOSED", body["state"])
	assert.Equal(t, 0.0, body["failures"])
	assert.Nil(t, body["opened_at"])

	state, err := payments.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, biz.StateClosed, state)
}

func TestBreakerService_UnknownBreaker(t *testing.T) {
	env := setupTestServer(t, "")

	code, body := env.do(t, httptest.NewRequest(nethttp.MethodGet, "/v1/breakers/nope", nil))
	assert.Equal(t, nethttp.StatusNotFound, code)
	assert.Equal(t, ReasonBreakerNotFound, body["reason"])

	code, _ = env.do(t, httptest.NewRequest(nethttp.MethodPost, "/v1/breakers/nope/reset", nil))
	assert.Equal(t, nethttp.StatusNotFound, code)
}
