package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/merge"
)

type MergeHandler struct {
	coordinator *merge.Coordinator
	timeout     time.Duration
}

func NewMergeHandler(coordinator *merge.Coordinator, timeout time.Duration) *MergeHandler {
	return &MergeHandler{coordinator: coordinator, timeout: timeout}
}

type MergeRequestDTO struct {
	DeviceID string `json:"device_id"`
}

type MergeResponseDTO struct {
	Cart    *domain.Cart        `json:"cart"`
	Clamped []merge.ClampedLine `json:"clamped_lines,omitempty"`
}

// MergeOnSignIn is called by the sign-in flow once the user is
// authenticated: the device-local cart folds into the durable cart and the
// device-local storage is retired.
func (h *MergeHandler) MergeOnSignIn(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req MergeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.DeviceID == "" {
		respondError(w, http.StatusBadRequest, "invalid_device_id", "device_id is required")
		return
	}

	ctx, cancel := contextWithTimeout(r, h.timeout)
	defer cancel()

	cart, clamped, err := h.coordinator.OnSignIn(ctx, domain.AnonymousRef(req.DeviceID), domain.UserRef(userID))
	if err != nil {
		handleEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MergeResponseDTO{Cart: cart, Clamped: clamped})
}
