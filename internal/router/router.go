package router

import (
	"log/slog"
	"net/http"

	"github.com/foodboard/api/internal/config"
	"github.com/foodboard/api/internal/enum"
	"github.com/foodboard/api/internal/handler"
	mw "github.com/foodboard/api/internal/middleware"
	"github.com/foodboard/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the wired components the router exposes.
type Deps struct {
	Orders  handler.OrderServicer
	Catalog handler.ProductCatalog
	Hub     *ws.Hub
	Logger  *slog.Logger
}

// New creates a Chi router with all application routes wired up.
// Storefront routes are public; order management requires a STAFF or ADMIN token.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	orderHandler := handler.NewOrderHandler(d.Orders, d.Logger.With("component", "http"))
	productHandler := handler.NewProductHandler(d.Catalog, d.Logger.With("component", "http"))

	// Public routes
	r.Get("/health", handler.Health(d.Hub))
	r.Route("/products", productHandler.RegisterRoutes)

	// Change stream
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret, mw.BearerHeader, mw.QueryParam("token")))
		r.Use(mw.RequireRole(enum.UserRoleStaff, enum.UserRoleAdmin))
		r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(d.Hub, w, r)
		})
		r.Get("/events/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeSSE(d.Hub, w, r)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		// Storefront checkout
		orderHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole(enum.UserRoleStaff, enum.UserRoleAdmin))
			orderHandler.RegisterRoutes(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleAdmin))
		r.Route("/catalog", productHandler.RegisterAdminRoutes)
	})

	d.Logger.Info("router initialized")
	return r
}
