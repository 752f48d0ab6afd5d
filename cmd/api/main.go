package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/martello/marketplace-backend/api/controllers"
	"github.com/martello/marketplace-backend/api/routes"
	"github.com/martello/marketplace-backend/internal/admin"
	"github.com/martello/marketplace-backend/internal/auth"
	"github.com/martello/marketplace-backend/internal/cart"
	"github.com/martello/marketplace-backend/internal/catalog"
	"github.com/martello/marketplace-backend/internal/commissions"
	"github.com/martello/marketplace-backend/internal/discounts"
	"github.com/martello/marketplace-backend/internal/notifications"
	"github.com/martello/marketplace-backend/internal/orders"
	"github.com/martello/marketplace-backend/internal/reviews"
	"github.com/martello/marketplace-backend/internal/users"
	"github.com/martello/marketplace-backend/internal/vendors"
	"github.com/martello/marketplace-backend/internal/wishlist"
	"github.com/martello/marketplace-backend/pkg/config"
	"github.com/martello/marketplace-backend/pkg/db"
	"github.com/martello/marketplace-backend/pkg/logger"
	"github.com/martello/marketplace-backend/pkg/metrics"
	"github.com/martello/marketplace-backend/pkg/migrate"
	"github.com/martello/marketplace-backend/pkg/outbox"
	"github.com/martello/marketplace-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	vendorsRepo := vendors.NewRepository(gormDB)
	productsRepo := catalog.NewRepository(gormDB)
	categoriesRepo := catalog.NewCategoryRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	commissionsRepo := commissions.NewRepository(gormDB)
	discountsRepo := discounts.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	wishlistRepo := wishlist.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	notificationsSvc, err := notifications.NewService(notificationsRepo, logg)
	exitOnErr(logg, "notifications service", err)

	authSvc, err := auth.NewService(usersRepo, vendorsRepo, dbClient, cfg.Password, cfg.JWT)
	exitOnErr(logg, "auth service", err)

	catalogSvc, err := catalog.NewService(productsRepo, categoriesRepo, vendorsRepo)
	exitOnErr(logg, "catalog service", err)

	cartSvc, err := cart.NewService(cartRepo, productsRepo)
	exitOnErr(logg, "cart service", err)

	commissionsSvc, err := commissions.NewService(
		commissionsRepo,
		productsRepo,
		vendorsRepo,
		dbClient,
		outboxSvc,
		notificationsSvc,
		cfg.Marketplace.DefaultCommissionPercent,
	)
	exitOnErr(logg, "commissions service", err)

	ordersSvc, err := orders.NewService(
		ordersRepo,
		productsRepo,
		vendorsRepo,
		commissionsSvc,
		dbClient,
		outboxSvc,
		notificationsSvc,
		logg,
	)
	exitOnErr(logg, "orders service", err)

	discountsSvc, err := discounts.NewService(discountsRepo, productsRepo, categoriesRepo, vendorsRepo)
	exitOnErr(logg, "discounts service", err)

	vendorsSvc, err := vendors.NewService(vendorsRepo, productsRepo, dbClient, outboxSvc, notificationsSvc)
	exitOnErr(logg, "vendors service", err)

	reviewsSvc, err := reviews.NewService(reviewsRepo, productsRepo, logg)
	exitOnErr(logg, "reviews service", err)

	wishlistSvc, err := wishlist.NewService(wishlistRepo, productsRepo, logg)
	exitOnErr(logg, "wishlist service", err)

	adminSvc, err := admin.NewService(gormDB, usersRepo, commissionsSvc, logg)
	exitOnErr(logg, "admin service", err)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	handler := routes.NewRouter(cfg, logg, httpMetrics, redisClient,
		map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		routes.Services{
			Auth:          authSvc,
			Catalog:       catalogSvc,
			Cart:          cartSvc,
			Orders:        ordersSvc,
			Discounts:     discountsSvc,
			Commissions:   commissionsSvc,
			Vendors:       vendorsSvc,
			Reviews:       reviewsSvc,
			Wishlists:     wishlistSvc,
			Notifications: notificationsSvc,
			Admin:         adminSvc,
		},
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(graceCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down")
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
