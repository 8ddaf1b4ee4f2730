package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/events"
	"moneta/internal/handlers"
	"moneta/internal/holidays"
	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/services"
	"moneta/internal/validator"

	_ "moneta/internal/docs" // Import swagger docs
)

// @title           Moneta API
// @version         1.0
// @description     Moneta is a personal finance backend for tracking transactions, recurring expenses, budgets, and spending reports.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Cache invalidation event publisher. Without a broker URL events are
	// dropped, which is fine for single-instance deployments.
	var publisher events.Publisher = events.NopPublisher{}
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Infow("AMQP event publisher connected", "exchange", appConfig.AMQPExchange)
	}

	// Holiday calendar for recurring generation
	calendar := holidays.NewCalendar(appConfig.HolidayRegion)

	// Report narrator, falls back to template text without an API key
	narrator := llm.NewNarrator(appConfig.OpenAIAPIKey, appConfig.OpenAIModel)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db, publisher)
	paymentMethodService := services.NewPaymentMethodService(db, publisher)
	transactionService := services.NewTransactionService(db, publisher)
	recurringService := services.NewRecurringService(db, publisher, calendar)
	reportService := services.NewReportService(db, narrator, publisher)
	budgetService := services.NewBudgetService(db, publisher)
	systemLogService := services.NewSystemLogService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, categoryService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(paymentMethodService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	recurringHandler := handlers.NewRecurringHandler(recurringService)
	reportHandler := handlers.NewReportHandler(reportService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	systemLogHandler := handlers.NewSystemLogHandler(systemLogService)

	// Daily sweep that catches up recurring expenses for all users
	go runGenerationLoop(recurringService, systemLogService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/auth/me", authHandler.Me)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.Create)
	transactions.GET("", transactionHandler.List)
	transactions.GET("/stats", transactionHandler.Stats)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)
	transactions.POST("/:id/restore", transactionHandler.Restore)
	transactions.DELETE("/:id/purge", transactionHandler.Purge)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.Create)
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	// Payment method routes
	paymentMethods := protected.Group("/payment-methods")
	paymentMethods.POST("", paymentMethodHandler.Create)
	paymentMethods.GET("", paymentMethodHandler.List)
	paymentMethods.GET("/:id", paymentMethodHandler.Get)
	paymentMethods.PUT("/:id", paymentMethodHandler.Update)
	paymentMethods.POST("/:id/default", paymentMethodHandler.SetDefault)
	paymentMethods.DELETE("/:id", paymentMethodHandler.Delete)

	// Recurring expense routes
	recurring := protected.Group("/recurring")
	recurring.POST("", recurringHandler.Create)
	recurring.GET("", recurringHandler.List)
	recurring.POST("/generate", recurringHandler.Generate)
	recurring.GET("/:id", recurringHandler.Get)
	recurring.PUT("/:id", recurringHandler.Update)
	recurring.POST("/:id/active", recurringHandler.SetActive)
	recurring.DELETE("/:id", recurringHandler.Delete)
	recurring.GET("/:id/logs", recurringHandler.Logs)

	// Report routes
	reports := protected.Group("/reports")
	reports.POST("/monthly", reportHandler.GenerateMonthly)
	reports.GET("/monthly", reportHandler.GetMonthly)
	reports.GET("/monthly/list", reportHandler.ListMonthly)
	reports.POST("/weekly", reportHandler.GenerateWeekly)
	reports.GET("/weekly", reportHandler.GetWeekly)
	reports.GET("/weekly/list", reportHandler.ListWeekly)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.PUT("", budgetHandler.Upsert)
	budgets.GET("", budgetHandler.List)
	budgets.GET("/status", budgetHandler.Status)
	budgets.GET("/suggestions", budgetHandler.Suggest)
	budgets.POST("/suggestions/apply", budgetHandler.ApplySuggestions)
	budgets.DELETE("/:id", budgetHandler.Delete)

	// System routes
	system := protected.Group("/system")
	system.GET("/logs", systemLogHandler.List)

	log.Infof("Starting Moneta backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

// generationInterval is how often the background sweep checks for due
// recurring expenses. The generator itself is idempotent, so running more
// often than daily only costs queries.
const generationInterval = time.Hour

func runGenerationLoop(recurringService services.RecurringServicer, systemLogService services.SystemLogServicer) {
	log := logger.Get()

	runOnce := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := recurringService.GenerateAllDue(ctx, time.Now().UTC())
		if err != nil {
			log.Errorw("recurring generation sweep failed", "error", err.Error())
			systemLogService.Log("error", "recurring", "", "", "generation sweep failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		if result.Generated > 0 || result.Failed > 0 {
			log.Infow("recurring generation sweep finished",
				"generated", result.Generated,
				"skipped", result.Skipped,
				"failed", result.Failed,
			)
			systemLogService.Log("info", "recurring", "", "", "generation sweep finished", map[string]interface{}{
				"generated": result.Generated,
				"skipped":   result.Skipped,
				"failed":    result.Failed,
			})
		}
	}

	runOnce()
	ticker := time.NewTicker(generationInterval)
	defer ticker.Stop()
	for range ticker.C {
		runOnce()
	}
}
