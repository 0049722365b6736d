package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/scheduler"
	"github.com/codr1/Padelicious/internal/testutil"
)

type stubJobs []scheduler.JobStats

func (s stubJobs) Stats() []scheduler.JobStats { return s }

type testServer struct {
	handler  http.Handler
	sessions *auth.Sessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := testutil.NewTestDB(t)
	clk, fake := testutil.NewClock(t)

	svc, err := booking.NewService(database, clk, booking.DefaultPolicy(), &testutil.RecordingNotifier{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Wait)

	sessions, err := auth.NewSessions("test-secret", false, fake)
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	limiter := ratelimit.New(&ratelimit.Config{Clock: fake})
	t.Cleanup(limiter.Close)

	testutil.CreateUser(t, database, testutil.MemberID, models.RoleMember, "0")
	testutil.CreateUser(t, database, testutil.OtherMemberID, models.RoleMember, "0")
	testutil.CreateUser(t, database, testutil.AdminID, models.RoleAdmin, "0")

	return &testServer{
		handler: newHandler(serverDeps{
			DB:       database,
			Booking:  svc,
			Sessions: sessions,
			Limiter:  limiter,
			Jobs:     stubJobs{{Name: scheduler.JobCompleteFinished, Cron: "*/15 * * * *"}},
		}),
		sessions: sessions,
	}
}

// do sends a request as userID; an empty userID is anonymous.
func (s *testServer) do(t *testing.T, method, path, userID string, role models.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		rec := httptest.NewRecorder()
		if err := s.sessions.SetAuthCookie(rec, &authz.AuthUser{ID: userID, Role: role}); err != nil {
			t.Fatalf("SetAuthCookie: %v", err)
		}
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) member(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, testutil.MemberID, models.RoleMember, body)
}

func (s *testServer) admin(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, testutil.AdminID, models.RoleAdmin, body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type reservationBody struct {
	Reservation struct {
		ID        int64  `json:"id"`
		State     string `json:"state"`
		TotalCost string `json:"total_cost"`
	} `json:"reservation"`
}

func bookingBody(courtID int64, start, end string) string {
	return fmt.Sprintf(`{
		"court_id": %d,
		"date": "2025-01-06",
		"start_time": %q,
		"end_time": %q,
		"players": [
			{"name": "Ana", "surname": "Rojas", "national_id": "12345678-5", "age": 30},
			{"name": "Luis", "surname": "Soto", "national_id": "9876543-3", "age": 41}
		]
	}`, courtID, start, end)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "", "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/reservations", "", "", bookingBody(1, "10:00", "11:30"))
	expectStatus(t, rec, http.StatusUnauthorized)
	if got := decode[errorBody](t, rec); got.Kind != "unauthenticated" {
		t.Fatalf("kind = %q", got.Kind)
	}

	rec = s.member(t, http.MethodPost, "/api/v1/courts", `{"name":"Cancha Central","hourly_cost":"20000"}`)
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.member(t, http.MethodGet, "/api/v1/admin/jobs", "")
	expectStatus(t, rec, http.StatusForbidden)

	// A tampered cookie is ignored rather than trusted.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "padelicious_auth", Value: "e30.forged"})
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.admin(t, http.MethodPost, "/api/v1/courts", `{"name":"Cancha Central","hourly_cost":"20000"}`)
	expectStatus(t, rec, http.StatusCreated)
	court := decode[struct {
		Court struct {
			ID         int64 `json:"id"`
			MaxPlayers int64 `json:"max_players"`
		} `json:"court"`
	}](t, rec).Court
	if court.MaxPlayers != 4 {
		t.Fatalf("max_players = %d, want default 4", court.MaxPlayers)
	}
	expectStatus(t, s.admin(t, http.MethodPost, "/api/v1/courts", `{"name":"Cancha Central","hourly_cost":"18000"}`), http.StatusConflict)

	rec = s.member(t, http.MethodPost, "/api/v1/reservations", bookingBody(court.ID, "10:00", "11:30"))
	expectStatus(t, rec, http.StatusPaymentRequired)
	if got := decode[errorBody](t, rec); got.Kind != string(booking.KindInsufficientFunds) {
		t.Fatalf("kind = %q", got.Kind)
	}

	rec = s.admin(t, http.MethodPost, "/api/v1/wallet/deposits", `{"national_id":"12.345.678-5","amount":"50000"}`)
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, s.member(t, http.MethodPost, "/api/v1/wallet/deposits", `{"national_id":"22222222-2","amount":"100"}`), http.StatusForbidden)

	availability := "/api/v1/availability?date=2025-01-06&start_time=10:30&end_time=12:00"
	rec = s.do(t, http.MethodGet, availability, "", "", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		AvailableCourts []struct{ ID int64 } `json:"available_courts"`
	}](t, rec); len(got.AvailableCourts) != 1 {
		t.Fatalf("available courts = %+v", got.AvailableCourts)
	}

	rec = s.member(t, http.MethodPost, "/api/v1/reservations", bookingBody(court.ID, "10:00", "11:30"))
	expectStatus(t, rec, http.StatusCreated)
	created := decode[reservationBody](t, rec).Reservation
	if created.State != string(models.StatePending) || created.TotalCost != "30000" {
		t.Fatalf("reservation = %+v", created)
	}

	rec = s.member(t, http.MethodPost, "/api/v1/reservations", bookingBody(court.ID, "10:30", "12:00"))
	expectStatus(t, rec, http.StatusConflict)
	if got := decode[errorBody](t, rec); got.Kind != string(booking.KindConflict) {
		t.Fatalf("kind = %q", got.Kind)
	}

	rec = s.do(t, http.MethodGet, availability, "", "", "")
	if got := decode[struct {
		AvailableCourts []struct{ ID int64 } `json:"available_courts"`
	}](t, rec); len(got.AvailableCourts) != 0 {
		t.Fatalf("court still listed as available: %+v", got.AvailableCourts)
	}

	path := fmt.Sprintf("/api/v1/reservations/%d", created.ID)
	expectStatus(t, s.member(t, http.MethodGet, path, ""), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, path, testutil.OtherMemberID, models.RoleMember, ""), http.StatusNotFound)

	rec = s.member(t, http.MethodGet, "/api/v1/reservations", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		Reservations []struct{ ID int64 } `json:"reservations"`
	}](t, rec); len(got.Reservations) != 1 || got.Reservations[0].ID != created.ID {
		t.Fatalf("reservations = %+v", got.Reservations)
	}
	rec = s.member(t, http.MethodGet, "/api/v1/reservations?state=cancelled_by_user,no_show", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		Reservations []struct{ ID int64 } `json:"reservations"`
	}](t, rec); len(got.Reservations) != 0 {
		t.Fatalf("filtered reservations = %+v", got.Reservations)
	}
	expectStatus(t, s.member(t, http.MethodGet, "/api/v1/reservations?state=cancelled", ""), http.StatusBadRequest)

	rec = s.member(t, http.MethodPost, path+"/cancel", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[reservationBody](t, rec).Reservation; got.State != string(models.StateCancelledByUser) {
		t.Fatalf("state = %s", got.State)
	}

	rec = s.member(t, http.MethodGet, "/api/v1/auth/me", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		User struct {
			Balance string `json:"balance"`
		} `json:"user"`
	}](t, rec); got.User.Balance != "50000" {
		t.Fatalf("balance after refund = %s, want 50000", got.User.Balance)
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.admin(t, http.MethodPost, "/api/v1/courts", `{"name":"Cancha Norte","hourly_cost":"16000"}`), http.StatusCreated)

	rec := s.admin(t, http.MethodPost, "/api/v1/admin/blocks", `{"court_id":1,"date":"2025-01-06","start_time":"08:00","end_time":"12:00"}`)
	expectStatus(t, rec, http.StatusCreated)
	block := decode[reservationBody](t, rec).Reservation
	if block.State != string(models.StateBlocked) {
		t.Fatalf("block state = %s", block.State)
	}

	expectStatus(t, s.admin(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/blocks/%d", block.ID), ""), http.StatusNoContent)
	expectStatus(t, s.admin(t, http.MethodDelete, "/api/v1/admin/blocks/abc", ""), http.StatusBadRequest)

	rec = s.admin(t, http.MethodPost, "/api/v1/equipment", `{"name":"Ball tube","category":"balls","stock":4,"unit_cost":"1500"}`)
	expectStatus(t, rec, http.StatusCreated)
	expectStatus(t, s.admin(t, http.MethodPost, "/api/v1/equipment", `{"name":"Shirt","category":"apparel","stock":1,"unit_cost":"1"}`), http.StatusBadRequest)

	rec = s.admin(t, http.MethodPost, "/api/v1/equipment/1/restock", `{"quantity":3}`)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		Equipment struct {
			Stock int64 `json:"stock"`
		} `json:"equipment"`
	}](t, rec); got.Equipment.Stock != 7 {
		t.Fatalf("stock = %d, want 7", got.Equipment.Stock)
	}
	expectStatus(t, s.admin(t, http.MethodPost, "/api/v1/equipment/99/restock", `{"quantity":3}`), http.StatusNotFound)

	rec = s.admin(t, http.MethodGet, "/api/v1/admin/jobs", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[struct {
		Jobs []scheduler.JobStats `json:"jobs"`
	}](t, rec); len(got.Jobs) != 1 || got.Jobs[0].Name != scheduler.JobCompleteFinished {
		t.Fatalf("jobs = %+v", got.Jobs)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	body := `{"national_id":"15.000.000-9","name":"Marta Díaz","email":"Marta@Example.com","password":"padel-rocks"}`
	rec := s.do(t, http.MethodPost, "/api/v1/members", "", "", body)
	expectStatus(t, rec, http.StatusCreated)
	expectStatus(t, s.do(t, http.MethodPost, "/api/v1/members", "", "", body), http.StatusConflict)
	expectStatus(t, s.do(t, http.MethodPost, "/api/v1/members", "", "", `{"national_id":"15000000-1","name":"X","email":"x@example.com","password":"padel-rocks"}`), http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", "", `{"email":"marta@example.com","password":"padel-rocks"}`)
	expectStatus(t, rec, http.StatusOK)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"national_id":"15000000-9"`) {
		t.Fatalf("me = %s", rec.Body.String())
	}
}
