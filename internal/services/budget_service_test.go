package services

import (
	"context"
	"testing"
	"time"

	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func TestUpsertBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_new_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 50000, nil)
		testutil.AssertNoError(t, err)

		if budget.Amount != 50000 {
			t.Errorf("expected amount 50000, got %d", budget.Amount)
		}
		if budget.AlertThreshold != 0.8 {
			t.Errorf("expected default threshold 0.8, got %v", budget.AlertThreshold)
		}
		if !budget.IsActive {
			t.Error("expected budget to be active")
		}
	})

	t.Run("overwrites_existing_slot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		first, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 50000, nil)
		testutil.AssertNoError(t, err)

		threshold := 0.9
		second, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 70000, &threshold)
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Error("expected upsert to reuse the existing budget")
		}
		if second.Amount != 70000 {
			t.Errorf("expected amount 70000, got %d", second.Amount)
		}
		if second.AlertThreshold != 0.9 {
			t.Errorf("expected threshold 0.9, got %v", second.AlertThreshold)
		}

		var count int64
		db.Model(&models.Budget{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 budget row, got %d", count)
		}
	})

	t.Run("overwrite_clears_suggestion_marker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		seeded := testutil.CreateTestBudget(t, db, user.ID, &cat.ID, 2025, 3, 10000)
		if err := db.Model(seeded).Update("is_suggested", true).Error; err != nil {
			t.Fatalf("failed to mark budget suggested: %v", err)
		}

		budget, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 20000, nil)
		testutil.AssertNoError(t, err)
		if budget.IsSuggested {
			t.Error("expected explicit upsert to clear is_suggested")
		}
	})

	t.Run("whole_month_budget_with_nil_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		first, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, nil, 200000, nil)
		testutil.AssertNoError(t, err)

		second, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, nil, 250000, nil)
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Error("expected one whole-month budget per period")
		}
	})

	t.Run("rejects_bad_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		if _, err := svc.UpsertBudget(ctx, user.ID, 2025, 13, nil, 1000, nil); err == nil {
			t.Error("expected error for month 13")
		}
		if _, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, nil, 0, nil); err == nil {
			t.Error("expected error for zero amount")
		}
		bad := 1.5
		if _, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, nil, 1000, &bad); err == nil {
			t.Error("expected error for threshold above 1")
		}
	})

	t.Run("category_must_belong_to_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

		_, err := svc.UpsertBudget(ctx, user1.ID, 2025, 3, &cat.ID, 1000, nil)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetBudgetStatus(t *testing.T) {
	t.Run("computes_spent_and_alerts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		fun := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestBudget(t, db, user.ID, &food.ID, 2025, 3, 10000)
		testutil.CreateTestBudget(t, db, user.ID, &fun.ID, 2025, 3, 20000)

		testutil.CreateTestTransactionOn(t, db, user.ID, &food.ID, models.TransactionTypeExpense, 8500, date(2025, time.March, 10))
		testutil.CreateTestTransactionOn(t, db, user.ID, &fun.ID, models.TransactionTypeExpense, 4000, date(2025, time.March, 12))

		status, err := svc.GetBudgetStatus(user.ID, 2025, 3)
		testutil.AssertNoError(t, err)

		if status.TotalBudgeted != 30000 {
			t.Errorf("expected total budgeted 30000, got %d", status.TotalBudgeted)
		}
		if status.TotalSpent != 12500 {
			t.Errorf("expected total spent 12500, got %d", status.TotalSpent)
		}

		byCategory := make(map[string]BudgetStatus)
		for _, item := range status.Items {
			if item.CategoryID != nil {
				byCategory[*item.CategoryID] = item
			}
		}

		foodStatus := byCategory[food.ID]
		if foodStatus.Spent != 8500 {
			t.Errorf("expected food spent 8500, got %d", foodStatus.Spent)
		}
		if foodStatus.Remaining != 1500 {
			t.Errorf("expected food remaining 1500, got %d", foodStatus.Remaining)
		}
		if foodStatus.Percentage != 85.0 {
			t.Errorf("expected food percentage 85.0, got %v", foodStatus.Percentage)
		}
		if !foodStatus.AlertTriggered {
			t.Error("expected food alert at 85% of a 0.8 threshold")
		}

		funStatus := byCategory[fun.ID]
		if funStatus.AlertTriggered {
			t.Error("did not expect alert at 20% spend")
		}
	})

	t.Run("whole_month_budget_tracks_total_spend", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestBudget(t, db, user.ID, nil, 2025, 3, 50000)
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 12000, date(2025, time.March, 5))
		testutil.CreateTestTransactionOn(t, db, user.ID, nil, models.TransactionTypeExpense, 3000, date(2025, time.March, 6))

		status, err := svc.GetBudgetStatus(user.ID, 2025, 3)
		testutil.AssertNoError(t, err)

		if len(status.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(status.Items))
		}
		if status.Items[0].Spent != 15000 {
			t.Errorf("expected whole-month spent 15000, got %d", status.Items[0].Spent)
		}
	})
}

func TestSuggestBudgets(t *testing.T) {
	t.Run("averages_trailing_three_months", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 9000, date(2025, time.January, 10))
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 12000, date(2025, time.February, 10))
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 9000, date(2025, time.March, 10))
		// Outside the window
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 99999, date(2024, time.December, 10))

		suggestions, err := svc.SuggestBudgets(user.ID, 2025, 4)
		testutil.AssertNoError(t, err)

		if len(suggestions) != 1 {
			t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
		}
		if suggestions[0].SuggestedAmount != 10000 {
			t.Errorf("expected suggested 10000, got %d", suggestions[0].SuggestedAmount)
		}
		if suggestions[0].BasedOnMonths != 3 {
			t.Errorf("expected window 3, got %d", suggestions[0].BasedOnMonths)
		}
	})

	t.Run("no_spending_means_no_suggestions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		suggestions, err := svc.SuggestBudgets(user.ID, 2025, 4)
		testutil.AssertNoError(t, err)
		if len(suggestions) != 0 {
			t.Errorf("expected no suggestions, got %d", len(suggestions))
		}
	})
}

func TestApplySuggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_suggested_budgets_and_skips_existing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		fun := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestTransactionOn(t, db, user.ID, &food.ID, models.TransactionTypeExpense, 30000, date(2025, time.February, 10))
		testutil.CreateTestTransactionOn(t, db, user.ID, &fun.ID, models.TransactionTypeExpense, 15000, date(2025, time.February, 12))

		// Food already has a manual budget for April
		testutil.CreateTestBudget(t, db, user.ID, &food.ID, 2025, 4, 12345)

		created, err := svc.ApplySuggestions(ctx, user.ID, 2025, 4)
		testutil.AssertNoError(t, err)

		if len(created) != 1 {
			t.Fatalf("expected 1 created budget, got %d", len(created))
		}
		if created[0].CategoryID == nil || *created[0].CategoryID != fun.ID {
			t.Error("expected the suggestion for the unbudgeted category")
		}
		if !created[0].IsSuggested {
			t.Error("expected created budget to be marked suggested")
		}

		// The manual budget is untouched
		var manual models.Budget
		if err := db.Where("user_id = ? AND category_id = ?", user.ID, food.ID).First(&manual).Error; err != nil {
			t.Fatalf("failed to load manual budget: %v", err)
		}
		if manual.Amount != 12345 {
			t.Errorf("expected manual budget amount 12345, got %d", manual.Amount)
		}
	})
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("slot_can_be_reused_after_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		budget, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 10000, nil)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeleteBudget(ctx, user.ID, budget.ID))

		replacement, err := svc.UpsertBudget(ctx, user.ID, 2025, 3, &cat.ID, 20000, nil)
		testutil.AssertNoError(t, err)
		if replacement.ID == budget.ID {
			t.Error("expected a fresh budget row")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		err := svc.DeleteBudget(ctx, user.ID, "missing")
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestGetUserBudgets(t *testing.T) {
	t.Run("scoped_to_month_and_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, events.NopPublisher{})
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		cat1 := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)
		cat2 := testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

		testutil.CreateTestBudget(t, db, user1.ID, &cat1.ID, 2025, 3, 1000)
		testutil.CreateTestBudget(t, db, user1.ID, nil, 2025, 3, 5000)
		testutil.CreateTestBudget(t, db, user1.ID, &cat1.ID, 2025, 4, 1000)
		testutil.CreateTestBudget(t, db, user2.ID, &cat2.ID, 2025, 3, 1000)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		result, err := svc.GetUserBudgets(user1.ID, 2025, 3, page)
		testutil.AssertNoError(t, err)

		if result.Pagination.Total != 2 {
			t.Errorf("expected 2 budgets, got %d", result.Pagination.Total)
		}
	})
}
