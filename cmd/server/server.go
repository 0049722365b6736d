// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/codr1/Padelicious/internal/api"
	"github.com/codr1/Padelicious/internal/api/admin"
	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/api/courts"
	"github.com/codr1/Padelicious/internal/api/equipment"
	"github.com/codr1/Padelicious/internal/api/members"
	"github.com/codr1/Padelicious/internal/api/reservations"
	"github.com/codr1/Padelicious/internal/booking"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/ratelimit"
)

// Server-wide budget for state-changing requests.
const (
	mutationsPerSecond = 20
	mutationBurst      = 40
)

type serverDeps struct {
	DB         *db.DB
	Booking    *booking.Service
	Sessions   *auth.Sessions
	Limiter    *ratelimit.Limiter
	Jobs       admin.JobStats
	TrustProxy bool
}

func newServer(port int, deps serverDeps) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newHandler(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func newHandler(deps serverDeps) http.Handler {
	router := http.NewServeMux()
	registerRoutes(router, deps)

	// Innermost first: the request ID logger wraps everything else.
	return api.ChainMiddleware(
		router,
		api.WithRateLimit(rate.NewLimiter(rate.Limit(mutationsPerSecond), mutationBurst)),
		api.WithAuth(deps.Sessions),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)
}

func registerRoutes(mux *http.ServeMux, deps serverDeps) {
	authHandlers := auth.NewHandlers(deps.DB.Queries, deps.Sessions, deps.Limiter, deps.TrustProxy)
	memberHandlers := members.NewHandlers(deps.DB.Queries, deps.Booking)
	reservationHandlers := reservations.NewHandlers(deps.Booking)
	courtHandlers := courts.NewHandlers(deps.DB.Queries)
	equipmentHandlers := equipment.NewHandlers(deps.DB)
	adminHandlers := admin.NewHandlers(deps.Booking, deps.Jobs)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.PingContext(r.Context()); err != nil {
			apiutil.WriteError(w, r, apiutil.HandlerError{
				Status:  http.StatusServiceUnavailable,
				Message: "database unavailable",
				Err:     err,
			})
			return
		}
		_ = apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", authHandlers.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandlers.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", authHandlers.HandleMe)

	// Members and wallet
	mux.HandleFunc("POST /api/v1/members", memberHandlers.HandleMemberRegister)
	mux.HandleFunc("POST /api/v1/wallet/deposits", memberHandlers.HandleDeposit)

	// Reservations
	mux.HandleFunc("GET /api/v1/availability", reservationHandlers.HandleAvailability)
	mux.HandleFunc("POST /api/v1/reservations", reservationHandlers.HandleReservationCreate)
	mux.HandleFunc("GET /api/v1/reservations", reservationHandlers.HandleReservationList)
	mux.HandleFunc("GET /api/v1/reservations/{id}", reservationHandlers.HandleReservationGet)
	mux.HandleFunc("POST /api/v1/reservations/{id}/confirm", reservationHandlers.HandleReservationConfirm)
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", reservationHandlers.HandleReservationCancel)

	// Courts and equipment
	mux.HandleFunc("GET /api/v1/courts", courtHandlers.HandleCourtList)
	mux.HandleFunc("POST /api/v1/courts", courtHandlers.HandleCourtCreate)
	mux.HandleFunc("GET /api/v1/equipment", equipmentHandlers.HandleEquipmentList)
	mux.HandleFunc("POST /api/v1/equipment", equipmentHandlers.HandleEquipmentCreate)
	mux.HandleFunc("POST /api/v1/equipment/{id}/restock", equipmentHandlers.HandleEquipmentRestock)

	// Admin
	mux.HandleFunc("POST /api/v1/admin/blocks", adminHandlers.HandleBlockCreate)
	mux.HandleFunc("DELETE /api/v1/admin/blocks/{id}", adminHandlers.HandleBlockDelete)
	mux.HandleFunc("POST /api/v1/admin/reservations/{id}/cancel", adminHandlers.HandleReservationCancel)
	mux.HandleFunc("POST /api/v1/admin/reservations/{id}/no-show", adminHandlers.HandleReservationNoShow)
	mux.HandleFunc("GET /api/v1/admin/jobs", adminHandlers.HandleJobStats)
}
