package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/catalog"
	"storefront/internal/gateway"
	"storefront/internal/notify"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/sheets"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, "storefront"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	tp, err := util.InitTracer("storefront", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	products, err := catalog.Load()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	gw, err := gateway.NewClient(gateway.Config{
		AppID:      cfg.Gateway.AppID,
		SecretKey:  cfg.Gateway.SecretKey,
		BaseURL:    cfg.Gateway.BaseURL,
		APIVersion: cfg.Gateway.APIVersion,
		Production: cfg.IsProduction(),
		Timeout:    cfg.Gateway.Timeout,
		AllowDemo:  cfg.Server.DemoMode,
	})
	if err != nil {
		log.Fatalf("Failed to configure Cashfree (set CASHFREE_APP_ID and CASHFREE_SECRET_KEY, or DEMO_MODE=true): %v", err)
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		log.Fatalf("Failed to migrate database: %v", err)
	}
	migrateCancel()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Business.CartTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)
	orderManager := service.NewOrderManager(eventPublisher, db)

	orderLogger := sheets.NewOrderLogger(sheets.Config{
		Endpoint:    cfg.Sheets.Endpoint,
		MaxAttempts: cfg.Sheets.MaxAttempts,
		BaseDelay:   cfg.Sheets.BaseDelay,
	})
	whatsapp := notify.NewWhatsApp(cfg.WhatsApp.Number)
	validate := service.NewValidator()

	cartService := service.NewCartService(redisClient, products)
	checkoutService := service.NewCheckoutService(cartService, validate, whatsapp, orderLogger, orderManager, cfg.Business.CODShippingFee)
	paymentService := service.NewPaymentService(gw, orderManager, redisClient, cfg.Business.WebhookDedupeTTL, validate)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, orderManager)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			logger.Error("Order worker stopped", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		products,
		cartService,
		checkoutService,
		paymentService,
		whatsapp,
		api.Diagnostics{
			AppIDSet:       cfg.Gateway.AppID != "",
			SecretKeySet:   cfg.Gateway.SecretKey != "",
			PublicBaseURL:  cfg.Server.PublicBaseURL,
			Environment:    gw.Environment(),
			GatewayBaseURL: gw.BaseURL(),
			APIVersion:     cfg.Gateway.APIVersion,
			SheetsEnabled:  cfg.Sheets.Endpoint != "",
		},
		map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		api.Options{
			PublicBaseURL:  cfg.Server.PublicBaseURL,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			PaymentDebug:   cfg.Server.PaymentDebug,
		},
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("port", cfg.Server.Port),
			zap.String("gateway_env", gw.Environment()),
			zap.Bool("payment_debug", cfg.Server.PaymentDebug))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if err := orderWorker.Stop(); err != nil {
		log.Printf("Error stopping order worker: %v", err)
	}
	orderLogger.Wait()

	log.Println("Server exited")
}
