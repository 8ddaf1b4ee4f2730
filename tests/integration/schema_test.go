package integration

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"moneta/internal/models"
)

// setupMigratedDB applies the shipped SQL migration to a fresh database,
// bypassing AutoMigrate, so the schema under test is the one production gets.
func setupMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()

	sql, err := os.ReadFile("../../migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("failed to read migration: %v", err)
	}

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:schemadb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	for _, stmt := range strings.Split(string(sql), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to apply migration statement %q: %v", stmt, err)
		}
	}

	return db
}

// TestMigrationSchemaMatchesModels inserts one fully populated row per model
// through GORM against the migrated schema. GORM writes every struct field,
// so any column missing from the SQL files fails the insert.
func TestMigrationSchemaMatchesModels(t *testing.T) {
	db := setupMigratedDB(t)

	create := func(v interface{}) {
		t.Helper()
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("insert %T failed against migrated schema: %v", v, err)
		}
	}

	now := time.Now().UTC()
	day := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	user := &models.User{
		Email:            "schema@test.com",
		Password:         "hash",
		FirstName:        "Schema",
		LastName:         "Check",
		IsActive:         true,
		RefreshTokenHash: "deadbeef",
		LastLoginAt:      &now,
	}
	create(user)

	category := &models.Category{
		UserID:    user.ID,
		Key:       "groceries",
		Name:      "Groceries",
		Type:      models.CategoryTypeExpense,
		Icon:      "cart",
		Color:     "#00AA00",
		IsSystem:  false,
		IsActive:  true,
		SortOrder: 1,
	}
	create(category)

	method := &models.PaymentMethod{
		UserID:    user.ID,
		Name:      "Visa",
		Type:      models.PaymentMethodTypeCreditCard,
		IsDefault: true,
		IsActive:  true,
		SortOrder: 1,
	}
	create(method)

	end := day.AddDate(1, 0, 0)
	recurring := &models.RecurringExpense{
		UserID:          user.ID,
		Name:            "Rent",
		Amount:          120000,
		Currency:        "USD",
		CategoryID:      category.ID,
		PaymentMethodID: &method.ID,
		Frequency:       models.FrequencyMonthly,
		DayOfMonth:      5,
		DaysOfWeek:      "",
		StartDate:       day,
		EndDate:         &end,
		SkipHolidays:    true,
		IsActive:        true,
		LastGenerated:   &day,
		NextGenerate:    &day,
	}
	create(recurring)

	transaction := &models.Transaction{
		UserID:             user.ID,
		CategoryID:         &category.ID,
		PaymentMethodID:    &method.ID,
		Type:               models.TransactionTypeExpense,
		Amount:             8000,
		Note:               "weekly shop",
		Date:               day,
		Currency:           "USD",
		Merchant:           "Fresh Mart",
		Subcategory:        "food",
		Product:            "produce",
		RecurringExpenseID: &recurring.ID,
		IsGenerated:        true,
	}
	create(transaction)

	create(&models.RecurringGenerationLog{
		RecurringExpenseID: recurring.ID,
		TransactionID:      &transaction.ID,
		GenerateDate:       day,
		Status:             models.GenerationSuccess,
		Message:            "",
	})

	changeAmount := int64(-500)
	changePct := -5.5
	create(&models.MonthlyReport{
		UserID:                 user.ID,
		Year:                   2025,
		Month:                  3,
		TotalExpenses:          8000,
		TotalIncome:            0,
		TransactionCount:       1,
		AvgTransaction:         8000,
		AvgDailyExpense:        258,
		FixedExpenses:          8000,
		VariableExpenses:       0,
		CategoryBreakdown:      "[]",
		MerchantBreakdown:      "[]",
		PaymentMethodBreakdown: "[]",
		PrevChangeAmount:       &changeAmount,
		PrevChangePct:          &changePct,
		AINarrative:            "steady month",
		GeneratedAt:            now,
	})

	create(&models.WeeklyReport{
		UserID:            user.ID,
		WeekStart:         day,
		WeekEnd:           day.AddDate(0, 0, 6),
		TotalExpenses:     8000,
		TotalIncome:       0,
		TransactionCount:  1,
		AvgTransaction:    8000,
		AvgDailyExpense:   1142,
		CategoryBreakdown: "[]",
		GeneratedAt:       now,
	})

	create(&models.Budget{
		UserID:         user.ID,
		Year:           2025,
		Month:          3,
		CategoryID:     &category.ID,
		Amount:         20000,
		AlertThreshold: 0.8,
		IsActive:       true,
		IsSuggested:    true,
	})

	create(&models.SystemLog{
		Level:    "info",
		Category: "schema",
		TraceID:  "trace-1",
		UserID:   user.ID,
		Message:  "ok",
		Metadata: "{}",
	})
}
