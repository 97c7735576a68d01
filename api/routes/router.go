package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Omkark04/agency-platform-backend/api/controllers"
	"github.com/Omkark04/agency-platform-backend/api/middleware"
	"github.com/Omkark04/agency-platform-backend/internal/gateways"
	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/internal/paymentrequests"
	"github.com/Omkark04/agency-platform-backend/internal/settlement"
	"github.com/Omkark04/agency-platform-backend/internal/workflow"
	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/db"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
	"github.com/Omkark04/agency-platform-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Workflow    workflow.Service
	History     history.Service
	Requests    paymentrequests.Service
	Checkouts   gateways.Service
	Settlements settlement.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	var idemStore redis.IdempotencyStore
	var cachePinger redis.Pinger
	if params.Redis != nil {
		idemStore = params.Redis
		cachePinger = params.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, cachePinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(params.Workflow, logg))
			r.Get("/{orderId}", controllers.GetOrder(params.Workflow, logg))
			r.Get("/{orderId}/workflow-info", controllers.WorkflowInfo(params.Workflow, logg))
			r.Get("/{orderId}/status-history", controllers.StatusHistory(params.History, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, middleware.RoleAdmin, middleware.RoleServiceHead))
				r.Post("/", controllers.CreateOrder(params.Workflow, logg))
				r.Post("/{orderId}/update-status", controllers.UpdateStatus(params.Workflow, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/requests", controllers.ListPaymentRequests(params.Requests, logg))
			r.Get("/order/{orderId}/transactions", controllers.ListOrderTransactions(params.Settlements, logg))
			r.Get("/receipt/{transaction_id}", controllers.DownloadReceipt(params.Settlements, logg))

			// Checkout and verification are exercised by the paying client.
			r.Post("/create-order", controllers.CreateCheckoutOrder(params.Checkouts, logg))
			r.Post("/verify", controllers.VerifyPayment(params.Settlements, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, middleware.RoleAdmin, middleware.RoleServiceHead))
				r.Post("/request-payment", controllers.RequestPayment(params.Requests, logg))
				r.Delete("/requests/{requestId}", controllers.CancelPaymentRequest(params.Requests, logg))
				r.Post("/retry/{transaction_id}", controllers.RetryPayment(params.Settlements, logg))
			})
		})
	})

	return r
}
