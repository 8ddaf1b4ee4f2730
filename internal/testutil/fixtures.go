package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"moneta/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	n := nextID()
	category := &models.Category{
		UserID:   userID,
		Key:      fmt.Sprintf("test-category-%d", n),
		Name:     fmt.Sprintf("Test Category %d", n),
		Type:     categoryType,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestPaymentMethod creates an active payment method.
func CreateTestPaymentMethod(t *testing.T, db *gorm.DB, userID string) *models.PaymentMethod {
	t.Helper()

	method := &models.PaymentMethod{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Card %d", nextID()),
		Type:     models.PaymentMethodTypeCreditCard,
		IsActive: true,
	}
	if err := db.Create(method).Error; err != nil {
		t.Fatalf("failed to create test payment method: %v", err)
	}
	return method
}

// CreateTestTransaction creates a transaction of the given type and amount (in
// cents) dated now.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, categoryID *string, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOn(t, db, userID, categoryID, txType, amount, time.Now())
}

// CreateTestTransactionOn creates a transaction on a specific date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID string, categoryID *string, txType models.TransactionType, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
		Currency:   "USD",
		Date:       date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurring creates a monthly recurring expense starting on the
// given date with its first generation scheduled for the start date.
func CreateTestRecurring(t *testing.T, db *gorm.DB, userID, categoryID string, amount int64, startDate time.Time) *models.RecurringExpense {
	t.Helper()

	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	expense := &models.RecurringExpense{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Recurring %d", nextID()),
		Amount:       amount,
		Currency:     "USD",
		CategoryID:   categoryID,
		Frequency:    models.FrequencyMonthly,
		DayOfMonth:   start.Day(),
		StartDate:    start,
		IsActive:     true,
		NextGenerate: &start,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test recurring expense: %v", err)
	}
	return expense
}

// CreateTestBudget creates an active budget for the given category and month.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, categoryID *string, year, month int, amount int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:         userID,
		Year:           year,
		Month:          month,
		CategoryID:     categoryID,
		Amount:         amount,
		AlertThreshold: 0.8,
		IsActive:       true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
