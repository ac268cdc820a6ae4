package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/engine"
	"github.com/fjod/go_storefront/internal/pricing"
)

type CheckoutHandler struct {
	engines    Engines
	calculator *pricing.Calculator
	timeout    time.Duration
}

func NewCheckoutHandler(engines Engines, calc *pricing.Calculator, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{engines: engines, calculator: calc, timeout: timeout}
}

type QuoteRequestDTO struct {
	Method string `json:"method"`
}

// QuoteResponseDTO pairs the cost breakdown with the validation diff so the
// checkout UI can show what changed before asking for payment.
type QuoteResponseDTO struct {
	Quote   domain.CheckoutQuote   `json:"quote"`
	Reduced []engine.ValidatedLine `json:"reduced,omitempty"`
	Dropped []engine.ValidatedLine `json:"dropped,omitempty"`
}

// Quote validates the cart against the catalog and prices the satisfiable
// portion. The stored cart is never mutated here.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ref, ok := ownerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or device identity")
		return
	}

	var req QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Method == "" {
		respondError(w, http.StatusBadRequest, "invalid_method", "shipping method is required")
		return
	}

	ctx, cancel := contextWithTimeout(r, h.timeout)
	defer cancel()

	validation, err := h.engines.For(ref).ValidateForCheckout(ctx, ref)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	quote, err := h.calculator.Quote(validation.PricedLines(), req.Method)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, QuoteResponseDTO{
		Quote:   quote,
		Reduced: validation.Reduced(),
		Dropped: validation.Dropped(),
	})
}

// ShippingMethods lists the fixed shipping table.
func (h *CheckoutHandler) ShippingMethods(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.calculator.Methods())
}
