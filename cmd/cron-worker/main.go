package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Omkark04/agency-platform-backend/internal/cron"
	"github.com/Omkark04/agency-platform-backend/internal/gateways"
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

const lockKeyFormat = "agency:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	requestService, checkoutService, settlementService, err := buildServices(context.Background(), cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:        logg,
		Requests:      requestService,
		Sessions:      checkoutService,
		SessionMaxAge: cfg.Payments.RequestExpiry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}
	backfillJob, err := cron.NewReceiptBackfillJob(cron.ReceiptBackfillJobParams{
		Logger:      logg,
		Settlements: settlementService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt backfill job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(expiryJob)
	registry.Register(backfillJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (paymentrequests.Service, gateways.Service, settlement.Service, error) {
	gormDB := dbClient.DB()

	orderRepo := workflow.NewRepository(gormDB)
	requestRepo := paymentrequests.NewRepository(gormDB)
	paymentOrderRepo := gateways.NewRepository(gormDB)

	requestService, err := paymentrequests.NewService(requestRepo, orderRepo, cfg.Payments.RequestExpiry, cfg.Payments.DefaultCurrency)
	if err != nil {
		return nil, nil, nil, err
	}

	razorpayClient, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	paypalClient, err := paypal.NewClient(ctx, cfg.PayPal, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	retryOpts := gateways.NewRetryOptions(cfg.Payments.VerifyRetries, cfg.Payments.VerifyRetryBackoff)
	razorpayCheckout, err := gateways.NewRazorpayCheckout(razorpayClient, retryOpts)
	if err != nil {
		return nil, nil, nil, err
	}
	paypalCheckout, err := gateways.NewPayPalCheckout(paypalClient, retryOpts)
	if err != nil {
		return nil, nil, nil, err
	}

	checkoutService, err := gateways.NewService(paymentOrderRepo, orderRepo, requestRepo, []gateways.Checkout{razorpayCheckout, paypalCheckout}, logg)
	if err != nil {
		return nil, nil, nil, err
	}

	issuer, err := receipts.NewIssuer(cfg.Receipts)
	if err != nil {
		return nil, nil, nil, err
	}
	settlementService, err := settlement.NewService(
		settlement.NewTransactionRepository(gormDB),
		settlement.NewOrderLedger(gormDB),
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
		return nil, nil, nil, err
	}

	return requestService, checkoutService, settlementService, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
