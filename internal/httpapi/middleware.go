package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

type ctxKey string

const (
	ctxKeyUserID    ctxKey = "user_id"
	ctxKeyDeviceID  ctxKey = "device_id"
	ctxKeyRequestID ctxKey = "request_id"
)

// MockAuthMiddleware simulates JWT authentication (replace with real JWT
// validation). The user identity is taken from the X-User-ID header; the
// device identity of the anonymous domain from X-Device-ID.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, ctxKeyUserID, userID)
		}
		if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			ctx = context.WithValue(ctx, ctxKeyDeviceID, deviceID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return userID
	}
	return ""
}

func getDeviceIDFromContext(ctx context.Context) string {
	if deviceID, ok := ctx.Value(ctxKeyDeviceID).(string); ok {
		return deviceID
	}
	return ""
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// ownerFromContext resolves the cart identity for the request: the
// authenticated user when signed in, otherwise the device-local identity.
func ownerFromContext(ctx context.Context) (domain.OwnerRef, bool) {
	if userID := getUserIDFromContext(ctx); userID != "" {
		return domain.UserRef(userID), true
	}
	if deviceID := getDeviceIDFromContext(ctx); deviceID != "" {
		return domain.AnonymousRef(deviceID), true
	}
	return domain.OwnerRef{}, false
}
