package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/engine"
)

// Engines holds one engine per storage domain. The anonymous engine persists
// to the device-local store, the authenticated one to the durable store.
type Engines struct {
	Anonymous     *engine.Engine
	Authenticated *engine.Engine
}

// For picks the engine matching the identity's storage domain.
func (e Engines) For(ref domain.OwnerRef) *engine.Engine {
	if ref.Kind == domain.OwnerUser {
		return e.Authenticated
	}
	return e.Anonymous
}

type CartHandler struct {
	engines Engines
	timeout time.Duration
}

func NewCartHandler(engines Engines, timeout time.Duration) *CartHandler {
	return &CartHandler{engines: engines, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// CartResponseDTO is the cart plus an optional informational notice for a
// silently clamped quantity.
type CartResponseDTO struct {
	Cart    *domain.Cart        `json:"cart"`
	Clamped *engine.ClampNotice `json:"clamped,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	cart, err := h.engines.For(ref).Snapshot(ctx, ref)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, clamped, err := h.engines.For(ref).AddLine(ctx, ref, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CartResponseDTO{Cart: cart, Clamped: clamped})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// Quantity <= 0 deliberately falls through: the engine treats it as
	// removal.
	cart, err := h.engines.For(ref).SetQuantity(ctx, ref, productID, req.VariantID, req.Quantity)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	variantID := r.URL.Query().Get("variant_id")

	cart, err := h.engines.For(ref).RemoveLine(ctx, ref, productID, variantID)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	if err := h.engines.For(ref).Clear(ctx, ref); err != nil {
		handleEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate runs the full checkout re-validation pass and returns the
// partitioned result without touching the stored cart.
func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	result, err := h.engines.For(ref).ValidateForCheckout(ctx, ref)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ApplyValidation re-validates and persists the reductions. It is a separate
// endpoint so the UI can show the diff first.
func (h *CartHandler) ApplyValidation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ref, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	eng := h.engines.For(ref)
	result, err := eng.ValidateForCheckout(ctx, ref)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	cart, err := eng.ApplyValidation(ctx, ref, result)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart})
}

func (h *CartHandler) begin(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc, domain.OwnerRef, bool) {
	ref, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or device identity")
		return nil, nil, domain.OwnerRef{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ctx, cancel, ref, true
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
