package handlers

import (
	"net/http"
	"strings"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth         *auth.AuthHandler
	Shops        *ShopHandler
	Checkins     *CheckinHandler
	Trails       *TrailHandler
	Rewards      *RewardHandler
	Achievements *AchievementHandler
	Feed         *FeedHandler
	POS          *POSHandler
}

// httpMiddleware runs a net/http middleware in front of a huma operation.
func httpMiddleware(mw func(http.Handler) http.Handler) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			next(huma.WithContext(ctx, r.Context()))
		})).ServeHTTP(w, r)
	}
}

// cors allows credentialed requests from the configured frontend origin.
func cors(origin string) func(http.Handler) http.Handler {
	origin = strings.TrimSuffix(origin, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-KEY")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RegisterRoutes(r *chi.Mux, h Handlers, corsOrigin string) huma.API {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if corsOrigin != "" {
		r.Use(cors(corsOrigin))
	}

	// Initialize Huma API
	config := huma.DefaultConfig("Coffee Pass API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"integrationKey": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	huma.Get(api, "/shops", h.Shops.HandleList)
	huma.Get(api, "/shops/nearby", h.Shops.HandleNearby)
	huma.Get(api, "/feed", h.Feed.HandleList)

	// Protected routes
	userAuth := httpMiddleware(h.Auth.AuthMiddleware)
	protected := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
		o.Middlewares = append(o.Middlewares, userAuth)
	}

	huma.Get(api, "/me", h.Auth.HandleMe, protected)
	huma.Put(api, "/me/favorites/{shopId}", h.Shops.HandleAddFavorite, protected)
	huma.Delete(api, "/me/favorites/{shopId}", h.Shops.HandleRemoveFavorite, protected)
	huma.Get(api, "/me/trails/completed", h.Trails.HandleCompleted, protected)

	huma.Post(api, "/checkins", h.Checkins.HandleCheckin, protected)

	huma.Get(api, "/trails", h.Trails.HandleList, protected)
	huma.Post(api, "/trails/{id}/start", h.Trails.HandleStart, protected)
	huma.Post(api, "/trails/{id}/visits", h.Trails.HandleVisit, protected)
	huma.Get(api, "/trails/{id}/progress", h.Trails.HandleProgress, protected)

	huma.Get(api, "/rewards", h.Rewards.HandleList, protected)
	huma.Post(api, "/rewards/{id}/reveal", h.Rewards.HandleReveal, protected)
	huma.Post(api, "/rewards/{id}/confirm", h.Rewards.HandleConfirm, protected)
	huma.Post(api, "/rewards/{id}/abandon", h.Rewards.HandleAbandon, protected)
	huma.Get(api, "/rewards/{id}/countdown", h.Rewards.HandleCountdown, protected)
	r.With(h.Auth.AuthMiddleware).Get("/rewards/{id}/countdown/ws", h.Rewards.HandleCountdownWS)

	huma.Get(api, "/achievements", h.Achievements.HandleList, protected)

	huma.Post(api, "/feed/{id}/like", h.Feed.HandleLike, protected)
	huma.Delete(api, "/feed/{id}/like", h.Feed.HandleUnlike, protected)
	huma.Post(api, "/feed/{id}/comments", h.Feed.HandleComment, protected)

	// Point-of-sale integrations
	huma.Post(api, "/pos/transactions", h.POS.HandleTransaction, func(o *huma.Operation) {
		o.Security = []map[string][]string{{"integrationKey": {}}}
		o.Middlewares = append(o.Middlewares, httpMiddleware(h.Auth.IntegrationMiddleware))
	})

	return api
}
