package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/gorm"

	"moneta/internal/events"
	"moneta/internal/llm"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func newTestReportService(db *gorm.DB) ReportServicer {
	return NewReportService(db, llm.NewNarrator("", ""), events.NopPublisher{})
}

func TestGenerateMonthlyReport(t *testing.T) {
	ctx := context.Background()

	t.Run("category_percentages", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		transport := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		for _, amount := range []int64{100, 200, 300} {
			testutil.CreateTestTransactionOn(t, db, user.ID, &food.ID, models.TransactionTypeExpense, amount, date(2025, time.January, 10))
		}
		testutil.CreateTestTransactionOn(t, db, user.ID, &transport.ID, models.TransactionTypeExpense, 50, date(2025, time.January, 12))

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		if report.TotalExpenses != 650 {
			t.Errorf("expected total expenses 650, got %d", report.TotalExpenses)
		}
		if report.TransactionCount != 4 {
			t.Errorf("expected 4 transactions, got %d", report.TransactionCount)
		}

		var breakdown []CategoryAgg
		if err := json.Unmarshal([]byte(report.CategoryBreakdown), &breakdown); err != nil {
			t.Fatalf("failed to unmarshal category breakdown: %v", err)
		}
		if len(breakdown) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(breakdown))
		}
		// Sorted by amount, largest first
		if breakdown[0].CategoryID != food.ID || breakdown[0].Amount != 600 {
			t.Errorf("expected food 600 first, got %s %d", breakdown[0].Name, breakdown[0].Amount)
		}
		if breakdown[0].Pct != 92.3 {
			t.Errorf("expected food pct 92.3, got %v", breakdown[0].Pct)
		}
		if breakdown[1].Pct != 7.7 {
			t.Errorf("expected transport pct 7.7, got %v", breakdown[1].Pct)
		}
	})

	t.Run("existing_report_is_returned_without_force", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 10))

		first, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		// New spending is not picked up until a forced regeneration
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 500, date(2025, time.January, 20))

		second, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("expected the same report, got a new one")
		}
		if second.TotalExpenses != 1000 {
			t.Errorf("expected stale total 1000, got %d", second.TotalExpenses)
		}

		var count int64
		db.Model(&models.MonthlyReport{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 report row, got %d", count)
		}
	})

	t.Run("force_regenerates_in_place", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 10))

		first, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 500, date(2025, time.January, 20))

		second, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, true)
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("expected regeneration to keep the report ID")
		}
		if second.TotalExpenses != 1500 {
			t.Errorf("expected updated total 1500, got %d", second.TotalExpenses)
		}

		var count int64
		db.Model(&models.MonthlyReport{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 report row after force, got %d", count)
		}
	})

	t.Run("previous_month_change", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 15))
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1500, date(2025, time.February, 15))

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 2, false)
		testutil.AssertNoError(t, err)

		if report.PrevChangeAmount == nil || *report.PrevChangeAmount != 500 {
			t.Errorf("expected change amount 500, got %v", report.PrevChangeAmount)
		}
		if report.PrevChangePct == nil || *report.PrevChangePct != 50.0 {
			t.Errorf("expected change pct 50.0, got %v", report.PrevChangePct)
		}
	})

	t.Run("no_previous_data_leaves_change_nil", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 15))

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		if report.PrevChangeAmount != nil || report.PrevChangePct != nil {
			t.Error("expected nil change fields with no previous data")
		}
	})

	t.Run("fixed_vs_variable_split", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		generated := testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 120000, date(2025, time.January, 5))
		if err := db.Model(generated).Update("is_generated", true).Error; err != nil {
			t.Fatalf("failed to mark transaction generated: %v", err)
		}
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 3000, date(2025, time.January, 8))

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		if report.FixedExpenses != 120000 {
			t.Errorf("expected fixed 120000, got %d", report.FixedExpenses)
		}
		if report.VariableExpenses != 3000 {
			t.Errorf("expected variable 3000, got %d", report.VariableExpenses)
		}
	})

	t.Run("narrative_is_filled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 15))

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		if report.AINarrative == "" {
			t.Error("expected a narrative")
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 13, false)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("losing_a_generation_race_returns_the_winner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)

		// Slip a competing report in between the existence check and the
		// insert, so the insert loses on the period index
		var raced bool
		err := db.Callback().Create().Before("gorm:create").Register("race_winner", func(tx *gorm.DB) {
			if raced || tx.Statement.Table != "monthly_reports" {
				return
			}
			raced = true
			winner := &models.MonthlyReport{
				UserID:      user.ID,
				Year:        2025,
				Month:       3,
				AINarrative: "winner",
				GeneratedAt: time.Now().UTC(),
			}
			if err := db.Session(&gorm.Session{NewDB: true}).Create(winner).Error; err != nil {
				tx.AddError(err)
			}
		})
		if err != nil {
			t.Fatalf("failed to register callback: %v", err)
		}

		report, err := svc.GenerateMonthlyReport(ctx, user.ID, 2025, 3, false)
		testutil.AssertNoError(t, err)
		if report.AINarrative != "winner" {
			t.Errorf("expected the winner's report, got %q", report.AINarrative)
		}

		var count int64
		db.Model(&models.MonthlyReport{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected exactly one report for the period, got %d", count)
		}
	})
}

func TestGenerateWeeklyReport(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes_to_week_start", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		// 2025-01-08 is a Wednesday; its week starts Monday 2025-01-06
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 700, date(2025, time.January, 8))

		report, err := svc.GenerateWeeklyReport(ctx, user.ID, date(2025, time.January, 8), false)
		testutil.AssertNoError(t, err)

		if !report.WeekStart.Equal(date(2025, time.January, 6)) {
			t.Errorf("expected week start 2025-01-06, got %s", report.WeekStart.Format("2006-01-02"))
		}
		if !report.WeekEnd.Equal(date(2025, time.January, 12)) {
			t.Errorf("expected week end 2025-01-12, got %s", report.WeekEnd.Format("2006-01-02"))
		}
		if report.TotalExpenses != 700 {
			t.Errorf("expected total 700, got %d", report.TotalExpenses)
		}
		if report.AvgDailyExpense != 100 {
			t.Errorf("expected avg daily 100, got %d", report.AvgDailyExpense)
		}
	})

	t.Run("no_duplicate_for_same_week", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.GenerateWeeklyReport(ctx, user.ID, date(2025, time.January, 6), false)
		testutil.AssertNoError(t, err)

		// Any date within the same week resolves to the same report
		second, err := svc.GenerateWeeklyReport(ctx, user.ID, date(2025, time.January, 10), false)
		testutil.AssertNoError(t, err)

		if first.ID != second.ID {
			t.Error("expected the same weekly report for dates in one week")
		}

		var count int64
		db.Model(&models.WeeklyReport{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 weekly report, got %d", count)
		}
	})

	t.Run("previous_week_change", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1000, date(2025, time.January, 7))
		testutil.CreateTestTransactionOn(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 800, date(2025, time.January, 14))

		report, err := svc.GenerateWeeklyReport(ctx, user.ID, date(2025, time.January, 13), false)
		testutil.AssertNoError(t, err)

		if report.PrevChangeAmount == nil || *report.PrevChangeAmount != -200 {
			t.Errorf("expected change amount -200, got %v", report.PrevChangeAmount)
		}
		if report.PrevChangePct == nil || *report.PrevChangePct != -20.0 {
			t.Errorf("expected change pct -20.0, got %v", report.PrevChangePct)
		}
	})
}

func TestGetMonthlyReport(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetMonthlyReport(user.ID, 2025, 1)
		testutil.AssertAppError(t, err, "REPORT_NOT_FOUND")
	})

	t.Run("found_after_generation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestReportService(db)
		user := testutil.CreateTestUser(t, db)

		generated, err := svc.GenerateMonthlyReport(context.Background(), user.ID, 2025, 1, false)
		testutil.AssertNoError(t, err)

		fetched, err := svc.GetMonthlyReport(user.ID, 2025, 1)
		testutil.AssertNoError(t, err)
		if fetched.ID != generated.ID {
			t.Error("expected the generated report")
		}
	})
}
