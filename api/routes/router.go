package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martello/marketplace-backend/api/controllers"
	"github.com/martello/marketplace-backend/api/middleware"
	"github.com/martello/marketplace-backend/internal/admin"
	"github.com/martello/marketplace-backend/internal/auth"
	"github.com/martello/marketplace-backend/internal/cart"
	"github.com/martello/marketplace-backend/internal/catalog"
	"github.com/martello/marketplace-backend/internal/commissions"
	"github.com/martello/marketplace-backend/internal/discounts"
	"github.com/martello/marketplace-backend/internal/notifications"
	"github.com/martello/marketplace-backend/internal/orders"
	"github.com/martello/marketplace-backend/internal/reviews"
	"github.com/martello/marketplace-backend/internal/vendors"
	"github.com/martello/marketplace-backend/internal/wishlist"
	"github.com/martello/marketplace-backend/pkg/config"
	"github.com/martello/marketplace-backend/pkg/enums"
	"github.com/martello/marketplace-backend/pkg/logger"
	"github.com/martello/marketplace-backend/pkg/metrics"
	pkgredis "github.com/martello/marketplace-backend/pkg/redis"
)

// Services bundles every domain service the router mounts.
type Services struct {
	Auth          auth.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        orders.Service
	Discounts     discounts.Service
	Commissions   commissions.Service
	Vendors       vendors.Service
	Reviews       reviews.Service
	Wishlists     wishlist.Service
	Notifications notifications.Service
	Admin         admin.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics *metrics.HTTPMetrics,
	redisClient *pkgredis.Client,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
	)

	loginPolicy := middleware.RateLimitPolicy{Name: "login", Limit: 10, Window: time.Minute}
	registerPolicy := middleware.RateLimitPolicy{Name: "register", Limit: 5, Window: time.Minute}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.RateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
	})

	// Public browse surface
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.GetProduct(svcs.Catalog, logg))
		r.Get("/products/{productId}/related", controllers.RelatedProducts(svcs.Catalog, logg))
		r.Get("/products/{productId}/reviews", controllers.ProductReviews(svcs.Reviews, logg))
		r.Get("/products/{productId}/rating", controllers.ProductRating(svcs.Reviews, logg))
		r.Get("/categories", controllers.ListCategories(svcs.Catalog, logg))
		r.Get("/discounts/applicable", controllers.ApplicableDiscounts(svcs.Discounts, logg))
	})

	// Authenticated customer surface
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Put("/items/{productId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svcs.Orders, logg))
			r.Get("/", controllers.CustomerOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.CustomerOrderDetail(svcs.Orders, logg))
		})

		r.Get("/discounts/{code}", controllers.ResolveDiscount(svcs.Discounts, logg))

		r.Post("/reviews", controllers.CreateReview(svcs.Reviews, logg))

		r.Route("/wishlists", func(r chi.Router) {
			r.Post("/", controllers.CreateWishlist(svcs.Wishlists, logg))
			r.Get("/", controllers.ListWishlists(svcs.Wishlists, logg))
			r.Get("/{wishlistId}", controllers.GetWishlist(svcs.Wishlists, logg))
			r.Put("/{wishlistId}", controllers.UpdateWishlist(svcs.Wishlists, logg))
			r.Delete("/{wishlistId}", controllers.DeleteWishlist(svcs.Wishlists, logg))
			r.Post("/{wishlistId}/items", controllers.WishlistAddProduct(svcs.Wishlists, logg))
			r.Delete("/{wishlistId}/items/{productId}", controllers.WishlistRemoveProduct(svcs.Wishlists, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		// Vendor surface
		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleVendor), logg))
			r.Get("/profile", controllers.VendorProfileFetch(svcs.Vendors, logg))
			r.Get("/dashboard", controllers.VendorDashboard(svcs.Vendors, logg))
			r.Post("/products", controllers.VendorCreateProduct(svcs.Catalog, logg))
			r.Patch("/products/{productId}", controllers.VendorUpdateProduct(svcs.Catalog, logg))
			r.Delete("/products/{productId}", controllers.VendorDeleteProduct(svcs.Catalog, logg))
			r.Get("/orders", controllers.VendorOrders(svcs.Orders, logg))
			r.Post("/orders/{orderId}/status", controllers.VendorOrderStatus(svcs.Orders, logg))
			r.Get("/commissions", controllers.VendorCommissions(svcs.Commissions, logg))
			r.Get("/earnings", controllers.VendorEarnings(svcs.Commissions, logg))
		})
	})

	// Admin surface
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/dashboard", controllers.AdminDashboard(svcs.Admin, logg))

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/pending", controllers.AdminPendingVendors(svcs.Vendors, logg))
			r.Post("/{vendorId}/decision", controllers.AdminVendorDecision(svcs.Vendors, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateCategory(svcs.Catalog, logg))
			r.Put("/{categoryId}", controllers.AdminUpdateCategory(svcs.Catalog, logg))
			r.Delete("/{categoryId}", controllers.AdminDeleteCategory(svcs.Catalog, logg))
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.AdminListDiscounts(svcs.Discounts, logg))
			r.Post("/", controllers.AdminCreateDiscount(svcs.Discounts, logg))
			r.Put("/{discountId}", controllers.AdminUpdateDiscount(svcs.Discounts, logg))
			r.Delete("/{discountId}", controllers.AdminDeleteDiscount(svcs.Discounts, logg))
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Get("/rates", controllers.AdminListCommissionRates(svcs.Commissions, logg))
			r.Put("/rates", controllers.AdminSetCommissionRate(svcs.Commissions, logg))
			r.Post("/{commissionId}/pay", controllers.AdminPayCommission(svcs.Commissions, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/pending", controllers.AdminPendingReviews(svcs.Reviews, logg))
			r.Post("/{reviewId}/approve", controllers.AdminApproveReview(svcs.Reviews, logg))
			r.Post("/{reviewId}/reject", controllers.AdminRejectReview(svcs.Reviews, logg))
		})
	})

	return r
}
