package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasuwa-hq/kasuwa-backend/api/controllers"
	webhookcontrollers "github.com/kasuwa-hq/kasuwa-backend/api/controllers/webhooks"
	"github.com/kasuwa-hq/kasuwa-backend/api/middleware"
	analyticsvc "github.com/kasuwa-hq/kasuwa-backend/internal/analytics"
	banksvc "github.com/kasuwa-hq/kasuwa-backend/internal/bankaccounts"
	ordersvc "github.com/kasuwa-hq/kasuwa-backend/internal/orders"
	payoutsvc "github.com/kasuwa-hq/kasuwa-backend/internal/payouts"
	productsvc "github.com/kasuwa-hq/kasuwa-backend/internal/products"
	walletsvc "github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/redis"
)

var (
	// Paystack retries webhooks aggressively; the cap only exists to absorb
	// floods from misbehaving sources.
	webhookRateLimit = middleware.NewRateLimitPolicy("webhook", time.Minute, 120, 0)
	payoutRateLimit  = middleware.NewRateLimitPolicy("payouts", time.Minute, 0, 30)
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	ordersService ordersvc.Service,
	walletService walletsvc.Service,
	payoutService payoutsvc.Service,
	bankAccountService banksvc.Service,
	productService productsvc.Service,
	analyticsService analyticsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/banks", controllers.ListBanks())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookRateLimit, redisClient, logg))
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(ordersService, cfg.Paystack.WebhookKey(), logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleSeller), logg))

			r.Route("/v1/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(ordersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
				r.Post("/{orderId}/confirm-payment", controllers.ConfirmOrderPayment(ordersService, logg))
			})
			r.Post("/v1/checkout/initialize", controllers.InitializeCheckout(ordersService, logg))

			r.Route("/v1/wallet", func(r chi.Router) {
				r.Get("/", controllers.WalletSummary(walletService, logg))
				r.Get("/credits", controllers.WalletCredits(walletService, logg))
				r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			})

			r.Route("/v1/payouts", func(r chi.Router) {
				r.Use(middleware.RateLimit(payoutRateLimit, redisClient, logg))
				r.Post("/", controllers.RequestPayout(payoutService, logg))
				r.Get("/", controllers.ListPayouts(payoutService, logg))
				r.Get("/{payoutId}", controllers.PayoutDetail(payoutService, logg))
				r.Delete("/{payoutId}", controllers.CancelPayout(payoutService, logg))
			})

			r.Route("/v1/bank-accounts", func(r chi.Router) {
				r.Get("/", controllers.ListBankAccounts(bankAccountService, logg))
				r.Post("/", controllers.AddBankAccount(bankAccountService, logg))
				r.Patch("/{accountId}", controllers.UpdateBankAccount(bankAccountService, logg))
				r.Delete("/{accountId}", controllers.DeleteBankAccount(bankAccountService, logg))
				r.Post("/{accountId}/verify", controllers.VerifyBankAccount(bankAccountService, logg))
				r.Post("/{accountId}/default", controllers.SetDefaultBankAccount(bankAccountService, logg))
			})

			r.Route("/v1/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(productService, logg))
				r.Post("/", controllers.CreateProduct(productService, logg))
				r.Get("/{productId}", controllers.ProductDetail(productService, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(productService, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(productService, logg))
			})
			r.Get("/v1/categories", controllers.ListCategories(productService, logg))

			r.Get("/v1/analytics/summary", controllers.AnalyticsSummary(analyticsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/payouts", func(r chi.Router) {
			r.Post("/{payoutId}/approve", controllers.AdminApprovePayout(payoutService, logg))
			r.Post("/{payoutId}/settle", controllers.AdminSettlePayout(payoutService, logg))
			r.Post("/{payoutId}/reject", controllers.AdminRejectPayout(payoutService, logg))
		})
		r.Post("/v1/orders/{orderId}/apply-splits", controllers.AdminApplyOrderSplits(walletService, logg))
		r.Post("/v1/categories", controllers.CreateCategory(productService, logg))
	})

	return r
}
