package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/testutil"
)

const testPassword = "correct horse"

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	database := testutil.NewTestDB(t)

	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := database.Queries.CreateUser(context.Background(), queries.CreateUserParams{
		NationalID:   testutil.MemberID,
		Name:         "Ana Rojas",
		Email:        "ana@example.com",
		PasswordHash: hash,
		Role:         models.RoleMember,
		Balance:      decimal.NewFromInt(50000),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	sessions, _ := newTestSessions(t)
	limiter := ratelimit.New(&ratelimit.Config{
		MaxAttempts: 3,
		Lockout:     5 * time.Minute,
		Clock:       clockwork.NewFakeClock(),
	})
	t.Cleanup(limiter.Close)
	return NewHandlers(database.Queries, sessions, limiter, false)
}

func login(h *Handlers, email, password string) *httptest.ResponseRecorder {
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	return rec
}

func TestHandleLogin(t *testing.T) {
	h := newTestHandlers(t)

	rec := login(h, " Ana@Example.com ", testPassword)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			NationalID string `json:"national_id"`
			Role       string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.NationalID != testutil.MemberID || resp.User.Role != "member" {
		t.Fatalf("user = %+v", resp.User)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("login response must not expose the password hash")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != authCookieName {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestHandleLoginRejects(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name   string
		email  string
		pass   string
		status int
	}{
		{"wrong password", "ana@example.com", "incorrect!", http.StatusUnauthorized},
		{"unknown email", "nobody@example.com", testPassword, http.StatusUnauthorized},
		{"missing password", "ana@example.com", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := login(h, tt.email, tt.pass)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Fatal("rejected login must not set a cookie")
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":`))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestHandleLoginLockout(t *testing.T) {
	h := newTestHandlers(t)

	for i := 0; i < 3; i++ {
		if rec := login(h, "ana@example.com", "incorrect!"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}

	rec := login(h, "ana@example.com", testPassword)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("locked out login status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("lockout response should carry Retry-After")
	}
}

func TestHandleMe(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: testutil.MemberID, Role: models.RoleMember}))
	rec = httptest.NewRecorder()
	h.HandleMe(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), testutil.MemberID) {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// A session for a deleted user is cleared.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: "22222222-2", Role: models.RoleMember}))
	rec = httptest.NewRecorder()
	h.HandleMe(rec, req)
	if rec.Code != http.StatusUnauthorized || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("stale session status = %d cookies = %d", rec.Code, len(rec.Result().Cookies()))
	}
}

func TestHandleLogout(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v", cookies)
	}
}
