package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

func testSource(googleToken, microsoftToken string) core.SessionSource {
	return core.SessionSourceFunc(func(ctx context.Context) (*core.Session, error) {
		return &core.Session{
			HasGoogleAuth:    googleToken != "",
			HasMicrosoftAuth: microsoftToken != "",
			GoogleToken:      googleToken,
			MicrosoftToken:   microsoftToken,
		}, nil
	})
}

func TestClient_InjectsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("g-token", ""))
	if _, err := c.Get(context.Background(), "/things"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotAuth != "Bearer g-token" {
		t.Errorf("Authorization = %q, want Bearer g-token", gotAuth)
	}
}

func TestClient_MissingTokenIsAuthError(t *testing.T) {
	c := NewClient(core.ProviderMicrosoft, "http://unused", testSource("g-token", ""))

	_, err := c.Get(context.Background(), "/me")
	if !IsAuthenticationError(err) {
		t.Errorf("error = %v, want authentication error", err)
	}
	if AuthErrorProvider(err) != core.ProviderMicrosoft {
		t.Errorf("provider = %s, want microsoft", AuthErrorProvider(err))
	}
}

func TestClient_ParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orgUnitId":"ou-123","orgUnitPath":"/Automation"}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("tok", ""))
	v, err := c.Get(context.Background(), "/orgunits")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("result type = %T, want map", v)
	}
	if m["orgUnitId"] != "ou-123" {
		t.Errorf("orgUnitId = %v, want ou-123", m["orgUnitId"])
	}
}

func TestClient_EmptyBodyYieldsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("tok", ""))
	v, err := c.Request(context.Background(), "/delete-me", Options{Method: http.MethodDelete})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 0 {
		t.Errorf("result = %#v, want empty object", v)
	}
}

func TestClient_TextResponseType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain metadata xml"))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("tok", ""))
	v, err := c.Request(context.Background(), "/metadata", Options{ResponseType: "text"})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if v != "plain metadata xml" {
		t.Errorf("result = %v, want raw text", v)
	}
}

func TestClient_401BecomesAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("stale", ""))
	_, err := c.Get(context.Background(), "/users")

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthenticationError", err)
	}
	if authErr.Provider != core.ProviderGoogle {
		t.Errorf("Provider = %s, want google", authErr.Provider)
	}
	if authErr.Message != "Invalid Credentials" {
		t.Errorf("Message = %q, want upstream message", authErr.Message)
	}
}

func TestClient_ErrorEnvelopeParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"Request_BadRequest","message":"Invalid domain name"}}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderMicrosoft, srv.URL, testSource("", "m-tok"))
	_, err := c.Get(context.Background(), "/domains/bad")

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != 400 || apiErr.Code != "Request_BadRequest" {
		t.Errorf("got %+v, want status 400 code Request_BadRequest", apiErr)
	}
	if apiErr.Message != "Invalid domain name" {
		t.Errorf("Message = %q, want upstream message", apiErr.Message)
	}
}

func TestClient_TranslatorHookRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"admin.googleapis.com has not been used in project 42 before or it is disabled."}}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("tok", ""),
		WithErrorTranslator(GoogleErrorHook))
	_, err := c.Get(context.Background(), "/orgunits")

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != core.CodeAPINotEnabled {
		t.Errorf("Code = %s, want API_NOT_ENABLED after hook", apiErr.Code)
	}
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"backend error"}}`))
	}))
	defer srv.Close()

	c := NewClient(core.ProviderGoogle, srv.URL, testSource("tok", ""))
	_, err := c.Get(context.Background(), "/orgunits")

	if _, ok := AsAPIError(err); !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if calls != 1 {
		t.Errorf("server hit %d times, want 1 (typed API errors propagate immediately)", calls)
	}
}
