package api

import (
	"budget-server/src/handlers"
	"budget-server/src/middleware"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	DemoMode       bool
}

func NewRouter(pool *pgxpool.Pool, engine handlers.SyncEngine, status handlers.SyncStatusReporter, log zerolog.Logger, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.DemoModeMiddleware(cfg.DemoMode))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handlers.Login(pool, cfg.JWTSecret))
		r.Post("/register", handlers.Register(pool, cfg.JWTSecret))

		// Protected routes
		r.With(auth).Group(func(r chi.Router) {
			// User
			r.Get("/user", handlers.GetUser(pool))
			r.Put("/user/email", handlers.UpdateEmail(pool))
			r.Post("/user/change-password", handlers.ChangePassword(pool))

			// Sync
			r.Post("/sync", handlers.TriggerSync(engine))
			r.Get("/sync/status", handlers.SyncStatus(status))
			r.Get("/sync/history", handlers.SyncHistory(pool))

			// Synced data
			r.Get("/accounts", handlers.GetAccounts(pool))
			r.Get("/transactions", handlers.GetTransactions(pool))
		})

		// Super Admin Routes
		r.With(auth, middleware.SuperAdminMiddleware).Group(func(r chi.Router) {
			r.Post("/admin/sync/prune", handlers.PruneSource(engine))
			r.Post("/admin/cache/clear/{cache_name}", handlers.ClearCache())
		})
	})

	return r
}
