package services

import (
	"context"
	"time"

	"moneta/internal/models"
	"moneta/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CreateTransactionInput holds the fields accepted when recording a transaction.
type CreateTransactionInput struct {
	Type            models.TransactionType
	Amount          int64
	Currency        string
	Date            time.Time
	CategoryID      *string
	PaymentMethodID *string
	Note            string
	Merchant        string
	Subcategory     string
	Product         string
}

// UpdateTransactionInput holds optional fields for a transaction update.
// Nil pointers leave the stored value unchanged.
type UpdateTransactionInput struct {
	Amount          *int64
	Currency        *string
	Date            *time.Time
	CategoryID      *string
	PaymentMethodID *string
	Note            *string
	Merchant        *string
	Subcategory     *string
	Product         *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate        *time.Time
	ToDate          *time.Time
	Type            *models.TransactionType
	CategoryID      *string
	PaymentMethodID *string
	MinAmount       *int64
	MaxAmount       *int64
	Search          string
	IncludeDeleted  bool
}

// TransactionStats contains aggregate figures over a date range.
type TransactionStats struct {
	TotalIncome      int64 `json:"total_income"`
	TotalExpenses    int64 `json:"total_expenses"`
	NetCashflow      int64 `json:"net_cashflow"`
	TransactionCount int   `json:"transaction_count"`
	AvgExpense       int64 `json:"avg_expense"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	RestoreTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	PurgeTransaction(ctx context.Context, userID, transactionID string) error
	GetStats(userID string, from, to time.Time) (*TransactionStats, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, key, name string, categoryType models.CategoryType, icon, color string, sortOrder int) (*models.Category, error)
	EnsureDefaults(userID string) error
	GetUserCategories(userID string, page pagination.PageRequest, categoryType *models.CategoryType, includeInactive bool) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, icon, color string, sortOrder *int, isActive *bool) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string, migrateTo *string) (int64, error)
}

// PaymentMethodServicer defines the contract for payment-method business logic.
type PaymentMethodServicer interface {
	CreatePaymentMethod(userID, name string, methodType models.PaymentMethodType, isDefault bool) (*models.PaymentMethod, error)
	GetUserPaymentMethods(userID string, page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.PaymentMethod], error)
	GetPaymentMethodByID(userID, methodID string) (*models.PaymentMethod, error)
	UpdatePaymentMethod(userID, methodID, name string, sortOrder *int, isActive *bool) (*models.PaymentMethod, error)
	SetDefault(userID, methodID string) error
	DeletePaymentMethod(ctx context.Context, userID, methodID string, migrateTo *string) (int64, error)
}

// CreateRecurringInput holds the fields accepted when creating a recurring expense.
type CreateRecurringInput struct {
	Name            string
	Amount          int64
	Currency        string
	CategoryID      string
	PaymentMethodID *string
	Frequency       models.RecurrenceFrequency
	DayOfMonth      int
	DaysOfWeek      string
	StartDate       time.Time
	EndDate         *time.Time
	SkipHolidays    bool
}

// UpdateRecurringInput holds optional fields for a recurring expense update.
type UpdateRecurringInput struct {
	Name            *string
	Amount          *int64
	CategoryID      *string
	PaymentMethodID *string
	DayOfMonth      *int
	DaysOfWeek      *string
	EndDate         *time.Time
	SkipHolidays    *bool
}

// GenerationItem is the outcome of one expense within a generation run.
type GenerationItem struct {
	RecurringExpenseID string                  `json:"recurring_expense_id"`
	Name               string                  `json:"name"`
	Date               time.Time               `json:"date"`
	Status             models.GenerationStatus `json:"status"`
	TransactionID      *string                 `json:"transaction_id,omitempty"`
	Message            string                  `json:"message,omitempty"`
}

// GenerationResult summarizes a generation run.
type GenerationResult struct {
	Generated int              `json:"generated"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Items     []GenerationItem `json:"items"`
}

// RecurringServicer defines the contract for recurring-expense business logic.
type RecurringServicer interface {
	CreateRecurring(userID string, input CreateRecurringInput) (*models.RecurringExpense, error)
	GetUserRecurring(userID string, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.RecurringExpense], error)
	GetRecurringByID(userID, recurringID string) (*models.RecurringExpense, error)
	UpdateRecurring(userID, recurringID string, input UpdateRecurringInput) (*models.RecurringExpense, error)
	SetActive(userID, recurringID string, active bool) (*models.RecurringExpense, error)
	DeleteRecurring(userID, recurringID string) error
	GenerateDue(ctx context.Context, userID string, asOf time.Time) (*GenerationResult, error)
	GenerateAllDue(ctx context.Context, asOf time.Time) (*GenerationResult, error)
	GetGenerationLogs(userID, recurringID string, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringGenerationLog], error)
}

// CategoryAgg is one category slice of a report breakdown.
type CategoryAgg struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Amount     int64   `json:"amount"`
	Count      int     `json:"count"`
	Pct        float64 `json:"pct"`
}

// MerchantAgg is one merchant slice of a report breakdown.
type MerchantAgg struct {
	Merchant string `json:"merchant"`
	Amount   int64  `json:"amount"`
	Count    int    `json:"count"`
}

// PaymentMethodAgg is one payment-method slice of a report breakdown.
type PaymentMethodAgg struct {
	PaymentMethodID string `json:"payment_method_id"`
	Name            string `json:"name"`
	Amount          int64  `json:"amount"`
	Count           int    `json:"count"`
}

// ReportServicer defines the contract for report generation and retrieval.
type ReportServicer interface {
	GenerateMonthlyReport(ctx context.Context, userID string, year, month int, force bool) (*models.MonthlyReport, error)
	GetMonthlyReport(userID string, year, month int) (*models.MonthlyReport, error)
	ListMonthlyReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.MonthlyReport], error)
	GenerateWeeklyReport(ctx context.Context, userID string, weekStart time.Time, force bool) (*models.WeeklyReport, error)
	GetWeeklyReport(userID string, weekStart time.Time) (*models.WeeklyReport, error)
	ListWeeklyReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WeeklyReport], error)
}

// BudgetStatus contains spending vs budget data for one budget in a month.
type BudgetStatus struct {
	BudgetID       string  `json:"budget_id"`
	CategoryID     *string `json:"category_id,omitempty"`
	CategoryName   string  `json:"category_name,omitempty"`
	Budgeted       int64   `json:"budgeted"`
	Spent          int64   `json:"spent"`
	Remaining      int64   `json:"remaining"`
	Percentage     float64 `json:"percentage"`
	AlertTriggered bool    `json:"alert_triggered"`
}

// BudgetStatusReport aggregates all budget statuses for a month.
type BudgetStatusReport struct {
	Year          int            `json:"year"`
	Month         int            `json:"month"`
	TotalBudgeted int64          `json:"total_budgeted"`
	TotalSpent    int64          `json:"total_spent"`
	Items         []BudgetStatus `json:"items"`
}

// BudgetSuggestion is a proposed budget amount derived from recent spending.
type BudgetSuggestion struct {
	CategoryID      string `json:"category_id"`
	CategoryName    string `json:"category_name"`
	SuggestedAmount int64  `json:"suggested_amount"`
	BasedOnMonths   int    `json:"based_on_months"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	UpsertBudget(ctx context.Context, userID string, year, month int, categoryID *string, amount int64, alertThreshold *float64) (*models.Budget, error)
	GetUserBudgets(userID string, year, month int, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetStatus(userID string, year, month int) (*BudgetStatusReport, error)
	SuggestBudgets(userID string, year, month int) ([]BudgetSuggestion, error)
	ApplySuggestions(ctx context.Context, userID string, year, month int) ([]models.Budget, error)
}

// SystemLogFilter holds optional filter parameters for listing system logs.
type SystemLogFilter struct {
	Level    string
	Category string
	UserID   string
	FromDate *time.Time
	ToDate   *time.Time
}

// SystemLogServicer defines the contract for structured system logging.
type SystemLogServicer interface {
	Log(level, category, traceID, userID, message string, metadata map[string]interface{})
	ListLogs(filter SystemLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.SystemLog], error)
}
