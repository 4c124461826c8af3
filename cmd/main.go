package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/gateway"
	"github.com/ScepterCode/Storemaster-sub002/internal/handler"
	"github.com/ScepterCode/Storemaster-sub002/internal/inventory"
	mid "github.com/ScepterCode/Storemaster-sub002/internal/middleware"
	"github.com/ScepterCode/Storemaster-sub002/internal/reorder"
	"github.com/ScepterCode/Storemaster-sub002/internal/sale"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
	"github.com/ScepterCode/Storemaster-sub002/pkg/config"
	"github.com/ScepterCode/Storemaster-sub002/pkg/database"
	"github.com/ScepterCode/Storemaster-sub002/pkg/jwtutil"
	"github.com/ScepterCode/Storemaster-sub002/pkg/logger"
	"github.com/ScepterCode/Storemaster-sub002/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting storemaster",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Local entity store and sync plumbing
	entityStore := store.NewGormStore(database.GetDB())
	gw := gateway.NewHTTPGateway(appConfig.Sync.GatewayBaseURL, appConfig.Sync.GatewayTimeout, log)
	queues := syncsvc.NewQueues(entityStore, log)
	executor := syncsvc.NewExecutor(entityStore, queues, gw, log)
	services := syncsvc.NewServices(entityStore, queues, gw, appConfig.Sync.MaxRetries, log)

	// Inventory and sale composition
	engine := inventory.NewEngine(entityStore, log)
	orchestrator := sale.NewOrchestrator(entityStore, engine, services, log)
	carts := sale.NewRegistry()
	reorderClient := reorder.NewClient(appConfig.Reorder, log)

	// Optional scheduled re-drain of pending queues
	if appConfig.Sync.DrainEnabled {
		scheduler := syncsvc.NewScheduler(appConfig.Sync.DrainCron, queues, executor, log)
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Handlers
	products := handler.NewProductHandler(entityStore, services.Products)
	categories := handler.NewCategoryHandler(entityStore, services.Categories)
	customers := handler.NewCustomerHandler(entityStore, services.Customers)
	invoices := handler.NewInvoiceHandler(entityStore, services.Invoices)
	transactions := handler.NewTransactionHandler(entityStore)
	batches := handler.NewBatchHandler(entityStore, engine)
	sales := handler.NewSaleHandler(carts, orchestrator)
	syncOps := handler.NewSyncHandler(executor)
	reorders := handler.NewReorderHandler(entityStore, reorderClient)

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Product API routes - Apply auth middleware to validate JWT and extract tenant ID
	productAPI := e.Group("/api/products", mid.AuthMiddleware)
	productAPI.GET("", products.List)
	productAPI.GET("/:id", products.Get)
	productAPI.POST("", products.Create)
	productAPI.PUT("/:id", products.Update)
	productAPI.DELETE("/:id", products.Delete)
	productAPI.POST("/:id/batches", batches.Receive)
	productAPI.GET("/:id/batches", batches.List)
	productAPI.GET("/:id/availability", batches.Availability)

	// Category API routes
	categoryAPI := e.Group("/api/categories", mid.AuthMiddleware)
	categoryAPI.GET("", categories.List)
	categoryAPI.GET("/:id", categories.Get)
	categoryAPI.POST("", categories.Create)
	categoryAPI.PUT("/:id", categories.Update)
	categoryAPI.DELETE("/:id", categories.Delete)

	// Customer API routes
	customerAPI := e.Group("/api/customers", mid.AuthMiddleware)
	customerAPI.GET("", customers.List)
	customerAPI.GET("/:id", customers.Get)
	customerAPI.POST("", customers.Create)
	customerAPI.PUT("/:id", customers.Update)
	customerAPI.DELETE("/:id", customers.Delete)

	// Invoice API routes
	invoiceAPI := e.Group("/api/invoices", mid.AuthMiddleware)
	invoiceAPI.GET("", invoices.List)
	invoiceAPI.GET("/:id", invoices.Get)
	invoiceAPI.POST("", invoices.Create)
	invoiceAPI.PUT("/:id/status", invoices.UpdateStatus)

	// Transaction API routes
	transactionAPI := e.Group("/api/transactions", mid.AuthMiddleware)
	transactionAPI.GET("", transactions.List)
	transactionAPI.GET("/:id", transactions.Get)

	// Sale API routes
	saleAPI := e.Group("/api/carts", mid.AuthMiddleware)
	saleAPI.POST("", sales.Open)
	saleAPI.GET("/:id", sales.Get)
	saleAPI.POST("/:id/items", sales.AddItem)
	saleAPI.PUT("/:id/items/:productId", sales.UpdateQuantity)
	saleAPI.DELETE("/:id/items/:productId", sales.RemoveItem)
	saleAPI.POST("/:id/discounts", sales.ApplyDiscount)
	saleAPI.POST("/:id/checkout", sales.Checkout)
	saleAPI.DELETE("/:id", sales.Close)

	// Sync API routes
	syncAPI := e.Group("/api/sync", mid.AuthMiddleware)
	syncAPI.GET("/status", syncOps.Status)
	syncAPI.GET("/queue", syncOps.Queue)
	syncAPI.POST("", syncOps.Drain)

	// Reorder API routes
	reorderAPI := e.Group("/api/reorder", mid.AuthMiddleware)
	reorderAPI.GET("/suggestions", reorders.Suggestions)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
