package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmfalke/sharelist/internal/auth"
	"github.com/dmfalke/sharelist/internal/categorize"
	"github.com/dmfalke/sharelist/internal/config"
	"github.com/dmfalke/sharelist/internal/handler"
	"github.com/dmfalke/sharelist/internal/hub"
	"github.com/dmfalke/sharelist/internal/metrics"
	"github.com/dmfalke/sharelist/internal/middleware"
	"github.com/dmfalke/sharelist/internal/realtime"
	"github.com/dmfalke/sharelist/internal/store"
)

type Server struct {
	db           *sql.DB
	hub          *hub.Hub
	registry     *prometheus.Registry
	authH        *handler.AuthHandler
	listH        *handler.ListHandler
	planH        *handler.PlanHandler
	contributorH *handler.ContributorHandler
	itemH        *handler.ItemHandler
	realtimeH    *realtime.Handler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	h := hub.New(logger.With("component", "hub"), collector)

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	listStore := store.NewListStore(db)
	contributorStore := store.NewContributorStore(db)
	itemStore := store.NewItemStore(db)
	planStore := store.NewPlanStore(db)

	// The stream endpoints resolve access the same way mutation endpoints
	// do: no role at all reads as "list not found".
	authorize := func(w http.ResponseWriter, r *http.Request, listID int64) bool {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			writeDenial(w, http.StatusUnauthorized, "unauthenticated")
			return false
		}
		role, err := listStore.RoleFor(listID, ac.UserID)
		if err != nil {
			logger.Error("resolve stream access", "list_id", listID, "user_id", ac.UserID, "error", err)
			writeDenial(w, http.StatusInternalServerError, "failed to resolve access")
			return false
		}
		if role == "" {
			writeDenial(w, http.StatusNotFound, "list not found")
			return false
		}
		return true
	}

	realtimeCfg := realtime.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		ChannelBuffer:     cfg.ChannelBuffer,
	}

	return &Server{
		db:           db,
		hub:          h,
		registry:     registry,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		listH:        handler.NewListHandler(listStore, planStore, logger.With("component", "list")),
		planH:        handler.NewPlanHandler(planStore, logger.With("component", "plan")),
		contributorH: handler.NewContributorHandler(listStore, contributorStore, userStore, logger.With("component", "contributor")),
		itemH:        handler.NewItemHandler(itemStore, listStore, h, categorize.NewKeyword(""), logger.With("component", "item")),
		realtimeH:    realtime.NewHandler(h, authorize, realtimeCfg, logger.With("component", "realtime")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst),
		logger:       logger,
	}
}

// Hub exposes the notification hub, mainly for tests and shutdown hooks.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	limited := middleware.RateLimit(s.rateLimiter)
	outerMux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.authH.Register)))
	outerMux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", metrics.Handler(s.registry))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session routes
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// List routes
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("GET /api/lists/{list_id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{list_id}", s.listH.Rename)
	mux.HandleFunc("DELETE /api/lists/{list_id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/{list_id}/restore", s.listH.Restore)

	// Plan routes
	mux.HandleFunc("POST /api/plans", s.planH.Create)
	mux.HandleFunc("GET /api/plans", s.planH.List)
	mux.HandleFunc("DELETE /api/plans/{plan_id}", s.planH.Delete)

	// Contributor routes
	mux.HandleFunc("GET /api/lists/{list_id}/contributors", s.contributorH.List)
	mux.HandleFunc("PUT /api/lists/{list_id}/contributors", s.contributorH.Upsert)
	mux.HandleFunc("DELETE /api/lists/{list_id}/contributors/{user_id}", s.contributorH.Delete)

	// Item routes
	mux.HandleFunc("GET /api/lists/{list_id}/items", s.itemH.List)
	mux.HandleFunc("POST /api/lists/{list_id}/items", s.itemH.Create)
	mux.HandleFunc("PUT /api/lists/{list_id}/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/lists/{list_id}/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/lists/{list_id}/items/toggle", s.itemH.Toggle)
	mux.HandleFunc("POST /api/lists/{list_id}/items/move", s.itemH.Move)
	mux.HandleFunc("POST /api/lists/{list_id}/items/move-store", s.itemH.MoveStore)
	mux.HandleFunc("POST /api/lists/{list_id}/clear-checked", s.itemH.ClearChecked)
	mux.HandleFunc("PUT /api/lists/{list_id}/items", s.itemH.Replace)

	// Stream routes
	mux.HandleFunc("GET /api/lists/{list_id}/events", s.realtimeH.ServeSSE)
	mux.HandleFunc("GET /api/lists/{list_id}/ws", s.realtimeH.ServeWS)
}

func writeDenial(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
