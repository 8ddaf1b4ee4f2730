package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

const topMerchantLimit = 5

// reportService handles report generation and retrieval.
type reportService struct {
	db        *gorm.DB
	narrator  llm.Narrator
	publisher events.Publisher
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, narrator llm.Narrator, publisher events.Publisher) ReportServicer {
	return &reportService{db: db, narrator: narrator, publisher: publisher}
}

// pct computes amount/total as a percentage rounded to one decimal place.
func pct(amount, total int64) float64 {
	if total == 0 {
		return 0
	}
	p, _ := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1).
		Float64()
	return p
}

// changePct computes the percentage change from prev to current, rounded to
// one decimal place.
func changePct(current, prev int64) float64 {
	p, _ := decimal.NewFromInt(current - prev).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(prev)).
		Round(1).
		Float64()
	return p
}

// periodTotals holds the raw aggregates computed over one reporting period.
type periodTotals struct {
	totalExpenses    int64
	totalIncome      int64
	transactionCount int
	expenseCount     int
	fixedExpenses    int64
	variableExpenses int64
	byCategory       []CategoryAgg
	byMerchant       []MerchantAgg
	byPaymentMethod  []PaymentMethodAgg
}

// aggregate computes totals and breakdowns for all transactions in [from, to).
func (s *reportService) aggregate(userID string, from, to time.Time) (*periodTotals, error) {
	var transactions []models.Transaction
	if err := s.db.
		Preload("Category").
		Preload("PaymentMethod").
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := &periodTotals{}
	categories := make(map[string]*CategoryAgg)
	merchants := make(map[string]*MerchantAgg)
	methods := make(map[string]*PaymentMethodAgg)

	for i := range transactions {
		t := &transactions[i]
		totals.transactionCount++

		if t.Type == models.TransactionTypeIncome {
			totals.totalIncome += t.Amount
			continue
		}

		totals.totalExpenses += t.Amount
		totals.expenseCount++
		if t.IsFixed() {
			totals.fixedExpenses += t.Amount
		} else {
			totals.variableExpenses += t.Amount
		}

		if t.CategoryID != nil {
			agg, ok := categories[*t.CategoryID]
			if !ok {
				agg = &CategoryAgg{CategoryID: *t.CategoryID}
				if t.Category != nil {
					agg.Name = t.Category.Name
				}
				categories[*t.CategoryID] = agg
			}
			agg.Amount += t.Amount
			agg.Count++
		}

		if t.Merchant != "" {
			agg, ok := merchants[t.Merchant]
			if !ok {
				agg = &MerchantAgg{Merchant: t.Merchant}
				merchants[t.Merchant] = agg
			}
			agg.Amount += t.Amount
			agg.Count++
		}

		if t.PaymentMethodID != nil {
			agg, ok := methods[*t.PaymentMethodID]
			if !ok {
				agg = &PaymentMethodAgg{PaymentMethodID: *t.PaymentMethodID}
				if t.PaymentMethod != nil {
					agg.Name = t.PaymentMethod.Name
				}
				methods[*t.PaymentMethodID] = agg
			}
			agg.Amount += t.Amount
			agg.Count++
		}
	}

	for _, agg := range categories {
		agg.Pct = pct(agg.Amount, totals.totalExpenses)
		totals.byCategory = append(totals.byCategory, *agg)
	}
	sort.Slice(totals.byCategory, func(i, j int) bool {
		return totals.byCategory[i].Amount > totals.byCategory[j].Amount
	})

	for _, agg := range merchants {
		totals.byMerchant = append(totals.byMerchant, *agg)
	}
	sort.Slice(totals.byMerchant, func(i, j int) bool {
		return totals.byMerchant[i].Amount > totals.byMerchant[j].Amount
	})
	if len(totals.byMerchant) > topMerchantLimit {
		totals.byMerchant = totals.byMerchant[:topMerchantLimit]
	}

	for _, agg := range methods {
		totals.byPaymentMethod = append(totals.byPaymentMethod, *agg)
	}
	sort.Slice(totals.byPaymentMethod, func(i, j int) bool {
		return totals.byPaymentMethod[i].Amount > totals.byPaymentMethod[j].Amount
	})

	return totals, nil
}

// expenseTotal returns the summed expenses in [from, to).
func (s *reportService) expenseTotal(userID string, from, to time.Time) (int64, error) {
	var total int64
	if err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND date >= ? AND date < ?", userID, models.TransactionTypeExpense, from, to).
		Scan(&total).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total, nil
}

// narrate produces the report narrative. Narration is best effort: a failure
// is logged and leaves the narrative empty rather than failing the report.
func (s *reportService) narrate(ctx context.Context, period string, totals *periodTotals, change *float64) string {
	summary := llm.ReportSummary{
		Period:        period,
		Currency:      "USD",
		TotalExpenses: totals.totalExpenses,
		TotalIncome:   totals.totalIncome,
		PrevChangePct: change,
	}
	for i, agg := range totals.byCategory {
		if i >= 3 {
			break
		}
		summary.TopCategories = append(summary.TopCategories, llm.CategoryShare{
			Name:   agg.Name,
			Amount: agg.Amount,
			Pct:    agg.Pct,
		})
	}

	narrative, err := s.narrator.Narrate(ctx, summary)
	if err != nil {
		logger.Get().Warnw("report narration failed",
			"period", period,
			"error", err.Error(),
		)
		return ""
	}
	return narrative
}

func marshalBreakdown(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// GenerateMonthlyReport builds the report for a calendar month. An existing
// report is returned as-is unless force is set, in which case it is
// regenerated in place.
func (s *reportService) GenerateMonthlyReport(ctx context.Context, userID string, year, month int, force bool) (*models.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}

	var existing models.MonthlyReport
	err := s.db.Where("user_id = ? AND year = ? AND month = ?", userID, year, month).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if found && !force {
		return &existing, nil
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	daysInMonth := int64(to.AddDate(0, 0, -1).Day())

	totals, err := s.aggregate(userID, from, to)
	if err != nil {
		return nil, err
	}

	report := &models.MonthlyReport{
		UserID:           userID,
		Year:             year,
		Month:            month,
		TotalExpenses:    totals.totalExpenses,
		TotalIncome:      totals.totalIncome,
		TransactionCount: totals.transactionCount,
		FixedExpenses:    totals.fixedExpenses,
		VariableExpenses: totals.variableExpenses,
		GeneratedAt:      time.Now().UTC(),
	}
	if totals.expenseCount > 0 {
		report.AvgTransaction = totals.totalExpenses / int64(totals.expenseCount)
	}
	report.AvgDailyExpense = totals.totalExpenses / daysInMonth

	report.CategoryBreakdown = marshalBreakdown(totals.byCategory)
	report.MerchantBreakdown = marshalBreakdown(totals.byMerchant)
	report.PaymentMethodBreakdown = marshalBreakdown(totals.byPaymentMethod)

	// Change vs the previous month, computed from raw transactions so the
	// previous report does not have to exist
	prevFrom := from.AddDate(0, -1, 0)
	prevTotal, err := s.expenseTotal(userID, prevFrom, from)
	if err != nil {
		return nil, err
	}
	if prevTotal > 0 {
		diff := totals.totalExpenses - prevTotal
		p := changePct(totals.totalExpenses, prevTotal)
		report.PrevChangeAmount = &diff
		report.PrevChangePct = &p
	}

	period := fmt.Sprintf("%s %d", from.Month().String(), year)
	report.AINarrative = s.narrate(ctx, period, totals, report.PrevChangePct)

	if found {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
		if err := s.db.Save(report).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		if err := s.db.Create(report).Error; err != nil {
			// A concurrent generator won the period index; return its row
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return s.GetMonthlyReport(userID, year, month)
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := s.publisher.Publish(ctx, events.New(events.ReportGenerated, userID, report.ID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.ReportGenerated,
			"entity_id", report.ID,
			"error", err.Error(),
		)
	}

	return report, nil
}

// GetMonthlyReport retrieves an already generated monthly report.
func (s *reportService) GetMonthlyReport(userID string, year, month int) (*models.MonthlyReport, error) {
	var report models.MonthlyReport
	if err := s.db.Where("user_id = ? AND year = ? AND month = ?", userID, year, month).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

// ListMonthlyReports retrieves a paginated list of monthly reports, newest first.
func (s *reportService) ListMonthlyReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.MonthlyReport], error) {
	page.Defaults()

	base := s.db.Model(&models.MonthlyReport{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.MonthlyReport
	if err := base.Order("year DESC, month DESC").Scopes(pagination.Paginate(page)).Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// weekStartOf normalizes a date to the Monday of its week.
func weekStartOf(t time.Time) time.Time {
	t = dateOnly(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// GenerateWeeklyReport builds the report for the week containing weekStart.
// An existing report is returned as-is unless force is set.
func (s *reportService) GenerateWeeklyReport(ctx context.Context, userID string, weekStart time.Time, force bool) (*models.WeeklyReport, error) {
	from := weekStartOf(weekStart)
	to := from.AddDate(0, 0, 7)

	var existing models.WeeklyReport
	err := s.db.Where("user_id = ? AND week_start = ?", userID, from).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if found && !force {
		return &existing, nil
	}

	totals, err := s.aggregate(userID, from, to)
	if err != nil {
		return nil, err
	}

	report := &models.WeeklyReport{
		UserID:           userID,
		WeekStart:        from,
		WeekEnd:          to.AddDate(0, 0, -1),
		TotalExpenses:    totals.totalExpenses,
		TotalIncome:      totals.totalIncome,
		TransactionCount: totals.transactionCount,
		AvgDailyExpense:  totals.totalExpenses / 7,
		GeneratedAt:      time.Now().UTC(),
	}
	if totals.expenseCount > 0 {
		report.AvgTransaction = totals.totalExpenses / int64(totals.expenseCount)
	}
	report.CategoryBreakdown = marshalBreakdown(totals.byCategory)

	prevTotal, err := s.expenseTotal(userID, from.AddDate(0, 0, -7), from)
	if err != nil {
		return nil, err
	}
	if prevTotal > 0 {
		diff := totals.totalExpenses - prevTotal
		p := changePct(totals.totalExpenses, prevTotal)
		report.PrevChangeAmount = &diff
		report.PrevChangePct = &p
	}

	if found {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
		if err := s.db.Save(report).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		if err := s.db.Create(report).Error; err != nil {
			// A concurrent generator won the period index; return its row
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return s.GetWeeklyReport(userID, from)
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := s.publisher.Publish(ctx, events.New(events.ReportGenerated, userID, report.ID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.ReportGenerated,
			"entity_id", report.ID,
			"error", err.Error(),
		)
	}

	return report, nil
}

// GetWeeklyReport retrieves an already generated weekly report.
func (s *reportService) GetWeeklyReport(userID string, weekStart time.Time) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	if err := s.db.Where("user_id = ? AND week_start = ?", userID, weekStartOf(weekStart)).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

// ListWeeklyReports retrieves a paginated list of weekly reports, newest first.
func (s *reportService) ListWeeklyReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.WeeklyReport], error) {
	page.Defaults()

	base := s.db.Model(&models.WeeklyReport{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.WeeklyReport
	if err := base.Order("week_start DESC").Scopes(pagination.Paginate(page)).Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}
