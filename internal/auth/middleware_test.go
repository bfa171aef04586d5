package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

var testSecret = []byte("super-secret-key")

func testMiddleware(now time.Time) Middleware {
	return Middleware{
		Secret: testSecret,
		Validator: TokenValidator{
			Issuer:    "identity",
			Audience:  "ksmedical-api",
			ClockSkew: time.Second,
			Algorithm: jwa.HS256,
		},
		Now: func() time.Time { return now },
	}
}

func signToken(t *testing.T, now time.Time, subject string, alg jwa.SignatureAlgorithm, roles ...string) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer("identity").
		Audience([]string{"ksmedical-api"}).
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute))
	if len(roles) > 0 {
		builder = builder.Claim("roles", roles)
	}
	token, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(alg, testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestRequireAuthSetsSubject(t *testing.T) {
	now := time.Now()
	m := testMiddleware(now)

	var gotUser string
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, now, "user-42", jwa.HS256))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if gotUser != "user-42" {
		t.Fatalf("unexpected subject: %s", gotUser)
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	m := testMiddleware(time.Now())
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRequireAuthRejectsWrongAlgorithm(t *testing.T) {
	now := time.Now()
	m := testMiddleware(now)
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, now, "user-42", jwa.HS384))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	m := testMiddleware(time.Now())
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, issued, "user-42", jwa.HS256))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	now := time.Now()
	m := testMiddleware(now)
	handler := m.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, now, "admin-1", jwa.HS256, "admin"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRequireRoleForbidsMissingClaim(t *testing.T) {
	now := time.Now()
	m := testMiddleware(now)
	handler := m.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, now, "user-42", jwa.HS256, "customer"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
