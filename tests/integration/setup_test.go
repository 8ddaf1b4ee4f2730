package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"moneta/internal/events"
	"moneta/internal/handlers"
	"moneta/internal/holidays"
	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/models"
	"moneta/internal/services"
	"moneta/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	publisher := events.NopPublisher{}
	calendar := holidays.NewCalendar("US")
	narrator := llm.NewNarrator("", "")

	// Services
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db, publisher)
	paymentMethodService := services.NewPaymentMethodService(db, publisher)
	transactionService := services.NewTransactionService(db, publisher)
	recurringService := services.NewRecurringService(db, publisher, calendar)
	reportService := services.NewReportService(db, narrator, publisher)
	budgetService := services.NewBudgetService(db, publisher)
	systemLogService := services.NewSystemLogService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, categoryService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(paymentMethodService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	recurringHandler := handlers.NewRecurringHandler(recurringService)
	reportHandler := handlers.NewReportHandler(reportService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	systemLogHandler := handlers.NewSystemLogHandler(systemLogService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/auth/me", authHandler.Me)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.Create)
	transactions.GET("", transactionHandler.List)
	transactions.GET("/stats", transactionHandler.Stats)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)
	transactions.POST("/:id/restore", transactionHandler.Restore)
	transactions.DELETE("/:id/purge", transactionHandler.Purge)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.Create)
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	paymentMethods := protected.Group("/payment-methods")
	paymentMethods.POST("", paymentMethodHandler.Create)
	paymentMethods.GET("", paymentMethodHandler.List)
	paymentMethods.POST("/:id/default", paymentMethodHandler.SetDefault)
	paymentMethods.DELETE("/:id", paymentMethodHandler.Delete)

	recurring := protected.Group("/recurring")
	recurring.POST("", recurringHandler.Create)
	recurring.GET("", recurringHandler.List)
	recurring.POST("/generate", recurringHandler.Generate)
	recurring.GET("/:id", recurringHandler.Get)
	recurring.PUT("/:id", recurringHandler.Update)
	recurring.POST("/:id/active", recurringHandler.SetActive)
	recurring.DELETE("/:id", recurringHandler.Delete)
	recurring.GET("/:id/logs", recurringHandler.Logs)

	reports := protected.Group("/reports")
	reports.POST("/monthly", reportHandler.GenerateMonthly)
	reports.GET("/monthly", reportHandler.GetMonthly)
	reports.GET("/monthly/list", reportHandler.ListMonthly)
	reports.POST("/weekly", reportHandler.GenerateWeekly)
	reports.GET("/weekly", reportHandler.GetWeekly)
	reports.GET("/weekly/list", reportHandler.ListWeekly)

	budgets := protected.Group("/budgets")
	budgets.PUT("", budgetHandler.Upsert)
	budgets.GET("", budgetHandler.List)
	budgets.GET("/status", budgetHandler.Status)
	budgets.GET("/suggestions", budgetHandler.Suggest)
	budgets.POST("/suggestions/apply", budgetHandler.ApplySuggestions)
	budgets.DELETE("/:id", budgetHandler.Delete)

	system := protected.Group("/system")
	system.GET("/logs", systemLogHandler.List)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// data extracts the "data" object from a success envelope.
func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	result := parseJSON(t, rec)
	obj, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in response, got: %s", rec.Body.String())
	}
	return obj
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// createCategory creates an expense category and returns its ID.
func (app *testApp) createCategory(t *testing.T, token, key, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"key":%q,"name":%q,"type":"expense"}`, key, name)
	rec := app.request("POST", "/api/v1/categories", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	return data(t, rec)["id"].(string)
}
