package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Omkark04/agency-platform-backend/api/routes"
	"github.com/Omkark04/agency-platform-backend/internal/gateways"
	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/internal/paymentrequests"
	"github.com/Omkark04/agency-platform-backend/internal/settlement"
	"github.com/Omkark04/agency-platform-backend/internal/workflow"
	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/db"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
	"github.com/Omkark04/agency-platform-backend/pkg/metrics"
	"github.com/Omkark04/agency-platform-backend/pkg/migrate"
	"github.com/Omkark04/agency-platform-backend/pkg/paypal"
	"github.com/Omkark04/agency-platform-backend/pkg/razorpay"
	"github.com/Omkark04/agency-platform-backend/pkg/receipts"
	"github.com/Omkark04/agency-platform-backend/pkg/redis"
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

	services, err := buildServices(context.Background(), cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Workflow:    services.workflow,
			History:     services.history,
			Requests:    services.requests,
			Checkouts:   services.checkouts,
			Settlements: services.settlements,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

type serviceSet struct {
	workflow    workflow.Service
	history     history.Service
	requests    paymentrequests.Service
	checkouts   gateways.Service
	settlements settlement.Service
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*serviceSet, error) {
	gormDB := dbClient.DB()

	orderRepo := workflow.NewRepository(gormDB)
	historyRepo := history.NewRepository(gormDB)
	requestRepo := paymentrequests.NewRepository(gormDB)
	paymentOrderRepo := gateways.NewRepository(gormDB)
	txnRepo := settlement.NewTransactionRepository(gormDB)
	ledger := settlement.NewOrderLedger(gormDB)

	workflowService, err := workflow.NewService(orderRepo, historyRepo, dbClient)
	if err != nil {
		return nil, err
	}
	historyService, err := history.NewService(historyRepo)
	if err != nil {
		return nil, err
	}
	requestService, err := paymentrequests.NewService(requestRepo, orderRepo, cfg.Payments.RequestExpiry, cfg.Payments.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	razorpayClient, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
	if err != nil {
		return nil, err
	}
	paypalClient, err := paypal.NewClient(ctx, cfg.PayPal, logg)
	if err != nil {
		return nil, err
	}
	retryOpts := gateways.NewRetryOptions(cfg.Payments.VerifyRetries, cfg.Payments.VerifyRetryBackoff)
	razorpayCheckout, err := gateways.NewRazorpayCheckout(razorpayClient, retryOpts)
	if err != nil {
		return nil, err
	}
	paypalCheckout, err := gateways.NewPayPalCheckout(paypalClient, retryOpts)
	if err != nil {
		return nil, err
	}

	checkoutService, err := gateways.NewService(paymentOrderRepo, orderRepo, requestRepo, []gateways.Checkout{razorpayCheckout, paypalCheckout}, logg)
	if err != nil {
		return nil, err
	}

	issuer, err := receipts.NewIssuer(cfg.Receipts)
	if err != nil {
		return nil, err
	}
	settlementService, err := settlement.NewService(
		txnRepo,
		ledger,
		paymentOrderRepo,
		requestRepo,
		checkoutService,
		dbClient,
		issuer,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		logg,
		cfg.Payments.MaxTxnRetries,
	)
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		workflow:    workflowService,
		history:     historyService,
		requests:    requestService,
		checkouts:   checkoutService,
		settlements: settlementService,
	}, nil
}
