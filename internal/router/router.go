package router

import (
	"net/http"

	"github.com/HanzKay/KrasandApps-V1/internal/cache"
	"github.com/HanzKay/KrasandApps-V1/internal/config"
	"github.com/HanzKay/KrasandApps-V1/internal/database"
	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/HanzKay/KrasandApps-V1/internal/events"
	"github.com/HanzKay/KrasandApps-V1/internal/handler"
	"github.com/HanzKay/KrasandApps-V1/internal/metrics"
	mw "github.com/HanzKay/KrasandApps-V1/internal/middleware"
	"github.com/HanzKay/KrasandApps-V1/internal/qr"
	"github.com/HanzKay/KrasandApps-V1/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by all handlers. Cache and Publisher may
// be nil; the features behind them are then disabled.
type Deps struct {
	Queries   *database.Queries
	Pool      service.DB
	Cache     *cache.Cache
	Publisher events.Publisher
}

// New creates a Chi router with all application routes wired up.
// Every request passes OptionalAuthenticate; handlers and the groups below
// decide which roles a route needs.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(zap.L()))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	queries := deps.Queries
	orderService := service.NewOrderService(deps.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, deps.Publisher)
	membershipService := service.NewMembershipService(deps.Pool, func(db database.DBTX) service.MembershipStore {
		return database.New(db)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuthenticate(cfg.Auth.JWTSecret))

		// Self-service: /auth/me, /my/membership
		handler.NewMeHandler(queries).RegisterRoutes(r)

		// Catalog
		r.Route("/products", handler.NewProductHandler(queries, deps.Cache).RegisterRoutes)
		r.Route("/categories", handler.NewCategoryHandler(queries, deps.Cache).RegisterRoutes)

		// Inventory
		r.Route("/ingredients", handler.NewIngredientHandler(queries).RegisterRoutes)
		r.Route("/cogs", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleStorage))
			handler.NewCogsHandler(queries).RegisterRoutes(r)
		})

		// Floor
		qrGen := qr.PNGGenerator{BaseURL: cfg.QR.BaseURL, Size: cfg.QR.Size}
		r.Route("/tables", handler.NewTableHandler(queries, qrGen, deps.Publisher).RegisterRoutes)

		// Orders and payments
		r.Route("/orders", handler.NewOrderHandler(orderService, queries, deps.Cache).RegisterRoutes)
		r.Route("/transactions", handler.NewTransactionHandler(queries).RegisterRoutes)

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
			handler.NewReportsHandler(queries).RegisterRoutes(r)
			handler.NewMembershipHandler(membershipService, queries).RegisterRoutes(r)
		})
	})

	zap.L().Info("router initialized")
	return r
}
