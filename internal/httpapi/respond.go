package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_storefront/internal/engine"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/fjod/go_storefront/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleEngineError maps the core error taxonomy onto HTTP status codes.
func handleEngineError(w http.ResponseWriter, err error) {
	var inv *engine.InsufficientInventoryError

	switch {
	case errors.As(err, &inv):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error: inv.Error(),
			Code:  "insufficient_inventory",
		})
	case errors.Is(err, engine.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, pricing.ErrUnknownShippingMethod):
		respondError(w, http.StatusBadRequest, "unknown_shipping_method", err.Error())
	case errors.Is(err, store.ErrPersistence):
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", "cart store is temporarily unavailable")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
