package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func identityCapturingHandler(captured **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			*captured = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireFirebaseAuthAcceptsValidToken(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID: "cus_1",
		Claims: map[string]interface{}{
			"email": "ada@example.com",
			"name":  "Ada Lovelace",
		},
	}}
	authn := NewAuthenticator(verifier)

	var captured *Identity
	handler := authn.RequireFirebaseAuth()(identityCapturingHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if captured == nil || captured.UID != "cus_1" {
		t.Fatalf("identity not stored: %+v", captured)
	}
	if captured.Email != "ada@example.com" || captured.Name != "Ada Lovelace" {
		t.Errorf("claims not mapped: %+v", captured)
	}
}

func TestRequireFirebaseAuthRejectsMissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})

	handler := authn.RequireFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unauthenticated") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireFirebaseAuthRejectsInvalidToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: ErrTokenInvalid})

	handler := authn.RequireFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_token") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOptionalFirebaseAuthAllowsAnonymous(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: ErrTokenInvalid})

	var captured *Identity
	handler := authn.OptionalFirebaseAuth()(identityCapturingHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, anonymous request should pass", rec.Code)
	}
	if captured != nil {
		t.Errorf("no identity expected, got %+v", captured)
	}
}

func TestOptionalFirebaseAuthStillRejectsBadToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: ErrTokenExpired})

	handler := authn.OptionalFirebaseAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run with an expired token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token_expired") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOptionalFirebaseAuthAttachesIdentity(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID:    "cus_1",
		Claims: map[string]interface{}{"email": "ada@example.com"},
	}}
	authn := NewAuthenticator(verifier)

	var captured *Identity
	handler := authn.OptionalFirebaseAuth()(identityCapturingHandler(&captured))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if captured == nil || captured.UID != "cus_1" {
		t.Fatalf("identity not stored: %+v", captured)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := extractBearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("extractBearerToken(%q) = %q, %v; want %q, %v", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
