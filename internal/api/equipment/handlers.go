// internal/api/equipment/handlers.go
package equipment

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/db/queries"
	"github.com/codr1/Padelicious/internal/models"
)

const equipmentQueryTimeout = 5 * time.Second

type Handlers struct {
	db *db.DB
}

func NewHandlers(database *db.DB) *Handlers {
	return &Handlers{db: database}
}

type createEquipmentRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Stock    int64  `json:"stock"`
	UnitCost string `json:"unit_cost"`
}

type restockRequest struct {
	Quantity int64 `json:"quantity"`
}

// POST /api/v1/equipment
func (h *Handlers) HandleEquipmentCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if _, err := apiutil.AdminActor(r); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req createEquipmentRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "name", Reason: "is required"})
		return
	}
	category, err := models.ParseEquipmentCategory(strings.TrimSpace(req.Category))
	if err != nil {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "category", Reason: "must be one of racket, balls, court_gear, footwear"})
		return
	}
	if req.Stock < 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "stock", Reason: "must be 0 or greater"})
		return
	}
	unitCost, err := apiutil.ParseMoney(req.UnitCost, "unit_cost")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), equipmentQueryTimeout)
	defer cancel()

	item, err := h.db.Queries.CreateEquipment(ctx, queries.CreateEquipmentParams{
		Name:     name,
		Category: category,
		Stock:    req.Stock,
		UnitCost: unitCost,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "equipment with that name already exists", Err: err})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().Int64("equipment_id", item.ID).Str("name", item.Name).Int64("stock", item.Stock).Msg("Equipment created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"equipment": item}); err != nil {
		logger.Error().Err(err).Msg("Failed to write equipment response")
	}
}

// GET /api/v1/equipment
func (h *Handlers) HandleEquipmentList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), equipmentQueryTimeout)
	defer cancel()

	items, err := h.db.Queries.ListEquipment(ctx)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []queries.Equipment{}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"equipment": items}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write equipment response")
	}
}

// POST /api/v1/equipment/{id}/restock
func (h *Handlers) HandleEquipmentRestock(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if _, err := apiutil.AdminActor(r); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req restockRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	if req.Quantity < 1 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "quantity", Reason: "must be at least 1"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), equipmentQueryTimeout)
	defer cancel()

	var item queries.Equipment
	err = h.db.RunInTx(ctx, func(txdb *db.DB) error {
		n, err := txdb.Queries.IncrementEquipmentStock(ctx, queries.AdjustEquipmentStockParams{ID: id, Quantity: req.Quantity})
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		item, err = txdb.Queries.GetEquipment(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "equipment not found", Err: err})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().Int64("equipment_id", item.ID).Int64("added", req.Quantity).Int64("stock", item.Stock).Msg("Equipment restocked")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"equipment": item}); err != nil {
		logger.Error().Err(err).Msg("Failed to write equipment response")
	}
}
