package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/auth"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/token"
	_ "github.com/wardenhq/warden/testing"
)

type captureRecorder struct {
	decisions []audit.Decision
}

func (c *captureRecorder) Record(ctx context.Context, d audit.Decision) {
	c.decisions = append(c.decisions, d)
}

func testEvaluator() *authz.Evaluator {
	inactive := false
	return authz.NewEvaluator(authz.Config{
		Principals: []authz.PrincipalConfig{
			{Identity: "admin", Credential: "adminpass", Roles: []string{"admin"}},
			{Identity: "viewer", Credential: "viewerpass", Roles: []string{"viewer"}},
			{Identity: "suspended", Credential: "suspendedpass", Roles: []string{"viewer"}, Active: &inactive},
		},
		Roles: []authz.RoleConfig{
			{Name: "admin", Capabilities: []string{"create", "read", "update", "delete"}},
			{Name: "viewer", Capabilities: []string{"read"}},
		},
	}, nil)
}

func newHandler(t *testing.T) (*auth.Handler, *token.Store, *captureRecorder, *authz.Evaluator) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := token.NewStore(client, time.Hour)
	recorder := &captureRecorder{}
	evaluator := testEvaluator()
	handler := auth.NewHandler(nil, evaluator, tokens, recorder, nil)
	return handler, tokens, recorder, evaluator
}

func postLogin(handler *auth.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.IssueToken(res, req)
	return res
}

func TestIssueTokenSuccess(t *testing.T) {
	handler, tokens, recorder, _ := newHandler(t)

	res := postLogin(handler, `{"identity":"admin","credential":"adminpass"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", payload.TokenType)
	}
	if payload.AccessToken == "" || payload.AccessToken == "admin" {
		t.Fatalf("expected opaque token, got %q", payload.AccessToken)
	}
	if payload.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", payload.ExpiresIn)
	}

	identity, err := tokens.Resolve(context.Background(), payload.AccessToken)
	if err != nil {
		t.Fatalf("resolve issued token: %v", err)
	}
	if identity != "admin" {
		t.Fatalf("expected token bound to admin, got %q", identity)
	}

	if len(recorder.decisions) != 1 || recorder.decisions[0].Outcome != audit.OutcomeGranted {
		t.Fatalf("expected one granted decision, got %+v", recorder.decisions)
	}
}

func TestIssueTokenInvalidCredential(t *testing.T) {
	handler, _, recorder, _ := newHandler(t)

	res := postLogin(handler, `{"identity":"admin","credential":"wrongpass"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if res.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatal("expected bearer challenge header")
	}
	if len(recorder.decisions) != 1 {
		t.Fatalf("expected one decision, got %d", len(recorder.decisions))
	}
	if recorder.decisions[0].Reason != "invalid credential" {
		t.Fatalf("expected invalid credential reason, got %q", recorder.decisions[0].Reason)
	}
}

func TestIssueTokenUnknownPrincipal(t *testing.T) {
	handler, _, recorder, _ := newHandler(t)

	res := postLogin(handler, `{"identity":"ghost","credential":"anything"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	// Same body as a wrong credential so identities are not enumerable.
	if !strings.Contains(res.Body.String(), "incorrect identity or credential") {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
	if recorder.decisions[0].Reason != "unknown principal" {
		t.Fatalf("expected unknown principal reason, got %q", recorder.decisions[0].Reason)
	}
}

func TestIssueTokenDisabledPrincipal(t *testing.T) {
	handler, _, _, _ := newHandler(t)

	res := postLogin(handler, `{"identity":"suspended","credential":"suspendedpass"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "disabled") {
		t.Fatalf("unexpected body: %s", res.Body.String())
	}
}

func TestIssueTokenMalformedBody(t *testing.T) {
	handler, _, _, _ := newHandler(t)

	if res := postLogin(handler, `{`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", res.Code)
	}
	if res := postLogin(handler, `{"identity":"admin"}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credential, got %d", res.Code)
	}
}

func TestRevokeToken(t *testing.T) {
	handler, tokens, _, evaluator := newHandler(t)

	issued, err := tokens.Issue(context.Background(), "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	authenticator := auth.Authenticator{
		Logger:    nil,
		Tokens:    tokens,
		Evaluator: evaluator,
	}
	protected := authenticator.Middleware(http.HandlerFunc(handler.RevokeToken))

	req := httptest.NewRequest(http.MethodDelete, "/token", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Value)
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", res.Code, res.Body.String())
	}
	if _, err := tokens.Resolve(context.Background(), issued.Value); err == nil {
		t.Fatal("expected token to be revoked")
	}
}

func TestAuthenticatorRejectsMissingAndInvalidTokens(t *testing.T) {
	_, tokens, _, evaluator := newHandler(t)

	authenticator := auth.Authenticator{Tokens: tokens, Evaluator: evaluator}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := authenticator.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", res.Code)
	}
}

func TestAuthenticatorRejectsInactivePrincipal(t *testing.T) {
	_, tokens, _, evaluator := newHandler(t)

	// A token issued before the principal was disabled must stop working.
	issued, err := tokens.Issue(context.Background(), "suspended")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	authenticator := auth.Authenticator{Tokens: tokens, Evaluator: evaluator}
	protected := authenticator.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Value)
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inactive principal, got %d", res.Code)
	}
}

func TestAuthenticatorAttachesPrincipal(t *testing.T) {
	_, tokens, _, evaluator := newHandler(t)

	issued, err := tokens.Issue(context.Background(), "viewer")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	authenticator := auth.Authenticator{Tokens: tokens, Evaluator: evaluator}
	protected := authenticator.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := authz.PrincipalFromContext(r.Context())
		if !ok || p.Identity != "viewer" {
			t.Fatalf("expected viewer principal in context, got %+v ok=%v", p, ok)
		}
		if value, ok := auth.BearerFromContext(r.Context()); !ok || value != issued.Value {
			t.Fatal("expected bearer value in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Value)
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
