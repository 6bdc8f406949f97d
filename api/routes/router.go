package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suyogshakya/khajaghar-backend/api/controllers"
	"github.com/suyogshakya/khajaghar-backend/api/middleware"
	authsvc "github.com/suyogshakya/khajaghar-backend/internal/auth"
	cartsvc "github.com/suyogshakya/khajaghar-backend/internal/cart"
	catalogsvc "github.com/suyogshakya/khajaghar-backend/internal/catalog"
	ordersvc "github.com/suyogshakya/khajaghar-backend/internal/orders"
	"github.com/suyogshakya/khajaghar-backend/internal/payments"
	settingssvc "github.com/suyogshakya/khajaghar-backend/internal/settings"
	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
	"github.com/suyogshakya/khajaghar-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	authService authsvc.Service,
	catalogService catalogsvc.Service,
	cartService cartsvc.Service,
	orderService ordersvc.Service,
	settingsService settingssvc.Service,
	reconciler payments.Reconciler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.WebOrigin),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(authService, logg))
		r.Post("/login", controllers.Login(authService, logg))
	})

	// Public storefront reads.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(catalogService, logg))
		r.Get("/food-items", controllers.ListFoodItems(catalogService, logg))
		r.Get("/food-items/{foodItemId}", controllers.GetFoodItem(catalogService, logg))
	})
	r.Get("/api/v1/settings", controllers.SettingsGet(settingsService, logg))

	// Gateway return URLs. The buyer's browser lands here after paying;
	// these cannot carry a bearer token.
	r.Route("/api/v1/payments/esewa", func(r chi.Router) {
		r.Get("/success/{orderId}", controllers.EsewaReturn(reconciler, cfg.App.WebOrigin, logg))
		r.Get("/failure/{orderId}", controllers.EsewaReturn(reconciler, cfg.App.WebOrigin, logg))
	})
	r.Get("/api/v1/payments/khalti/success/{orderId}", controllers.KhaltiReturn(reconciler, cfg.App.WebOrigin, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items/{foodItemId}", controllers.CartSetQuantity(cartService, logg))
			r.Delete("/items/{foodItemId}", controllers.CartRemoveItem(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Get("/", controllers.OrderList(orderService, logg))
			r.Get("/{orderId}", controllers.OrderGet(orderService, logg))
			r.Get("/{orderId}/status", controllers.OrderStatus(orderService, logg))
			r.Put("/{orderId}", controllers.OrderUpdateStatus(orderService, logg))
		})

		r.Route("/api/v1/payments", func(r chi.Router) {
			r.Post("/esewa/initiate", controllers.PaymentInitiate(reconciler, enums.PaymentMethodEsewa, logg))
			r.Post("/khalti/initiate", controllers.PaymentInitiate(reconciler, enums.PaymentMethodKhalti, logg))
		})

		r.Route("/api/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Post("/categories", controllers.CreateCategory(catalogService, logg))
			r.Post("/food-items", controllers.CreateFoodItem(catalogService, logg))
			r.Patch("/food-items/{foodItemId}", controllers.UpdateFoodItem(catalogService, logg))
			r.Put("/settings", controllers.SettingsUpdate(settingsService, logg))
			r.Post("/payments/cash/{orderId}/paid", controllers.PaymentMarkCashPaid(reconciler, logg))
		})
	})

	return r
}
