package auth

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	ShopIDKey contextKey = "shop_id"
)

func UserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// ShopIDFromContext returns the shop authenticated by an integration key.
func ShopIDFromContext(ctx context.Context) (string, bool) {
	shopID, ok := ctx.Value(ShopIDKey).(string)
	return shopID, ok && shopID != ""
}

func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		userID, exp, err := h.ParseToken(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if time.Until(exp) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(userID); err == nil {
				http.SetCookie(w, h.cookie(newToken))
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IntegrationMiddleware admits point-of-sale requests carrying a valid X-API-KEY and records
// the key's shop in the request context.
func (h *AuthHandler) IntegrationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-API-KEY")
		if raw == "" {
			http.Error(w, "Unauthorized: API Key required", http.StatusUnauthorized)
			return
		}
		key, err := VerifyIntegrationKey(r.Context(), h.db, raw, time.Now())
		if err != nil {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ShopIDKey, key.ShopID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
