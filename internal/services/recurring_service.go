package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/holidays"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// recurringService handles recurring-expense business logic.
type recurringService struct {
	db        *gorm.DB
	publisher events.Publisher
	calendar  holidays.Calendar
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, publisher events.Publisher, calendar holidays.Calendar) RecurringServicer {
	return &recurringService{db: db, publisher: publisher, calendar: calendar}
}

// dateOnly truncates a timestamp to midnight UTC. All generation arithmetic
// works on calendar days.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// clampDayOfMonth returns the requested day, pulled back to the last day of
// the month when the month is shorter.
func clampDayOfMonth(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// parseDaysOfWeek converts a CSV of weekday numbers (Sunday=0) to a set.
func parseDaysOfWeek(csv string) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool)
	for _, part := range strings.Split(csv, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && n >= 0 && n <= 6 {
			set[time.Weekday(n)] = true
		}
	}
	return set
}

// nextOccurrence returns the first date strictly after the given date that
// satisfies the expense's frequency rule. The result ignores EndDate; callers
// decide whether the schedule has run out.
func nextOccurrence(exp *models.RecurringExpense, after time.Time) time.Time {
	after = dateOnly(after)

	switch exp.Frequency {
	case models.FrequencyDaily:
		return after.AddDate(0, 0, 1)

	case models.FrequencyWeekly:
		set := parseDaysOfWeek(exp.DaysOfWeek)
		if len(set) == 0 {
			set = map[time.Weekday]bool{dateOnly(exp.StartDate).Weekday(): true}
		}
		for i := 1; i <= 7; i++ {
			candidate := after.AddDate(0, 0, i)
			if set[candidate.Weekday()] {
				return candidate
			}
		}
		return after.AddDate(0, 0, 7)

	case models.FrequencyMonthly:
		day := exp.DayOfMonth
		if day < 1 {
			day = dateOnly(exp.StartDate).Day()
		}
		year, month := after.Year(), after.Month()
		candidate := time.Date(year, month, clampDayOfMonth(year, month, day), 0, 0, 0, 0, time.UTC)
		if candidate.After(after) {
			return candidate
		}
		next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return time.Date(next.Year(), next.Month(), clampDayOfMonth(next.Year(), next.Month(), day), 0, 0, 0, 0, time.UTC)
	}

	return after.AddDate(0, 0, 1)
}

// firstOccurrence returns the first scheduled date on or after the start date.
func firstOccurrence(exp *models.RecurringExpense) time.Time {
	start := dateOnly(exp.StartDate)
	switch exp.Frequency {
	case models.FrequencyDaily:
		return start
	case models.FrequencyWeekly:
		set := parseDaysOfWeek(exp.DaysOfWeek)
		if len(set) == 0 || set[start.Weekday()] {
			return start
		}
	case models.FrequencyMonthly:
		day := exp.DayOfMonth
		if day < 1 {
			day = start.Day()
		}
		if start.Day() == clampDayOfMonth(start.Year(), start.Month(), day) {
			return start
		}
	}
	return nextOccurrence(exp, start)
}

// CreateRecurring creates a recurring expense and schedules its first run.
func (s *recurringService) CreateRecurring(userID string, input CreateRecurringInput) (*models.RecurringExpense, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if !input.Frequency.IsValid() {
		return nil, apperrors.ErrInvalidFrequency
	}
	if input.Frequency == models.FrequencyMonthly && (input.DayOfMonth < 1 || input.DayOfMonth > 31) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "day_of_month must be between 1 and 31")
	}
	if input.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date is required")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", input.CategoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if input.PaymentMethodID != nil {
		var count int64
		if err := s.db.Model(&models.PaymentMethod{}).
			Where("id = ? AND user_id = ?", *input.PaymentMethodID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrPaymentMethodNotFound
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	expense := &models.RecurringExpense{
		UserID:          userID,
		Name:            input.Name,
		Amount:          input.Amount,
		Currency:        currency,
		CategoryID:      input.CategoryID,
		PaymentMethodID: input.PaymentMethodID,
		Frequency:       input.Frequency,
		DayOfMonth:      input.DayOfMonth,
		DaysOfWeek:      input.DaysOfWeek,
		StartDate:       dateOnly(input.StartDate),
		SkipHolidays:    input.SkipHolidays,
		IsActive:        true,
	}
	if input.EndDate != nil {
		end := dateOnly(*input.EndDate)
		expense.EndDate = &end
	}

	first := firstOccurrence(expense)
	if expense.EndDate == nil || !first.After(*expense.EndDate) {
		expense.NextGenerate = &first
	}

	if err := s.db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return expense, nil
}

// GetUserRecurring retrieves a paginated list of recurring expenses.
func (s *recurringService) GetUserRecurring(userID string, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.RecurringExpense], error) {
	page.Defaults()

	base := s.db.Model(&models.RecurringExpense{}).Where("user_id = ?", userID)
	if activeOnly {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.RecurringExpense
	if err := base.
		Preload("Category").
		Preload("PaymentMethod").
		Order("name ASC").
		Scopes(pagination.Paginate(page)).
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecurringByID retrieves a recurring expense by ID for a specific user
func (s *recurringService) GetRecurringByID(userID, recurringID string) (*models.RecurringExpense, error) {
	var expense models.RecurringExpense
	if err := s.db.
		Preload("Category").
		Preload("PaymentMethod").
		Where("id = ? AND user_id = ?", recurringID, userID).
		First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// UpdateRecurring updates an existing recurring expense. Changing the schedule
// fields recomputes the next generation date from the last generated date.
func (s *recurringService) UpdateRecurring(userID, recurringID string, input UpdateRecurringInput) (*models.RecurringExpense, error) {
	expense, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	scheduleChanged := false

	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
		}
		updates["amount"] = *input.Amount
	}
	if input.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("id = ? AND user_id = ?", *input.CategoryID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.PaymentMethodID != nil {
		var count int64
		if err := s.db.Model(&models.PaymentMethod{}).
			Where("id = ? AND user_id = ?", *input.PaymentMethodID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrPaymentMethodNotFound
		}
		updates["payment_method_id"] = *input.PaymentMethodID
	}
	if input.DayOfMonth != nil {
		if *input.DayOfMonth < 1 || *input.DayOfMonth > 31 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "day_of_month must be between 1 and 31")
		}
		updates["day_of_month"] = *input.DayOfMonth
		expense.DayOfMonth = *input.DayOfMonth
		scheduleChanged = true
	}
	if input.DaysOfWeek != nil {
		updates["days_of_week"] = *input.DaysOfWeek
		expense.DaysOfWeek = *input.DaysOfWeek
		scheduleChanged = true
	}
	if input.EndDate != nil {
		end := dateOnly(*input.EndDate)
		updates["end_date"] = end
		expense.EndDate = &end
		scheduleChanged = true
	}
	if input.SkipHolidays != nil {
		updates["skip_holidays"] = *input.SkipHolidays
	}

	if scheduleChanged {
		from := dateOnly(expense.StartDate).AddDate(0, 0, -1)
		if expense.LastGenerated != nil {
			from = *expense.LastGenerated
		}
		next := nextOccurrence(expense, from)
		if expense.EndDate != nil && next.After(*expense.EndDate) {
			updates["next_generate"] = nil
			expense.NextGenerate = nil
		} else {
			updates["next_generate"] = next
			expense.NextGenerate = &next
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(expense).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return expense, nil
}

// SetActive pauses or resumes a recurring expense. Resuming recomputes the
// next generation date; missed occurrences are caught up on the next run.
func (s *recurringService) SetActive(userID, recurringID string, active bool) (*models.RecurringExpense, error) {
	expense, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_active": active}
	if active && expense.NextGenerate == nil {
		from := dateOnly(expense.StartDate).AddDate(0, 0, -1)
		if expense.LastGenerated != nil {
			from = *expense.LastGenerated
		}
		next := nextOccurrence(expense, from)
		if expense.EndDate == nil || !next.After(*expense.EndDate) {
			updates["next_generate"] = next
			expense.NextGenerate = &next
		}
	}

	if err := s.db.Model(expense).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expense.IsActive = active

	return expense, nil
}

// DeleteRecurring soft-deletes a recurring expense. Previously generated
// transactions keep their reference for historical records.
func (s *recurringService) DeleteRecurring(userID, recurringID string) error {
	expense, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GenerateDue runs generation for one user's recurring expenses.
func (s *recurringService) GenerateDue(ctx context.Context, userID string, asOf time.Time) (*GenerationResult, error) {
	return s.generate(ctx, asOf, s.db.Where("user_id = ?", userID))
}

// GenerateAllDue runs generation across all users. Intended for a scheduler.
func (s *recurringService) GenerateAllDue(ctx context.Context, asOf time.Time) (*GenerationResult, error) {
	return s.generate(ctx, asOf, s.db)
}

// generate finds due expenses and produces one transaction per scheduled
// occurrence up to asOf, catching up any missed dates. Each expense is
// processed in its own database transaction so a failure does not abort the
// rest of the batch.
func (s *recurringService) generate(ctx context.Context, asOf time.Time, scope *gorm.DB) (*GenerationResult, error) {
	asOf = dateOnly(asOf)
	result := &GenerationResult{Items: []GenerationItem{}}

	var due []models.RecurringExpense
	if err := scope.
		Where("is_active = ? AND next_generate IS NOT NULL AND next_generate <= ?", true, asOf).
		Order("next_generate ASC").
		Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range due {
		expense := &due[i]
		dueDate := dateOnly(*expense.NextGenerate)
		items, err := s.generateOne(ctx, expense, asOf)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, GenerationItem{
				RecurringExpenseID: expense.ID,
				Name:               expense.Name,
				Date:               dueDate,
				Status:             models.GenerationFailed,
				Message:            err.Error(),
			})
			logger.Get().Errorw("recurring generation failed",
				"recurring_expense_id", expense.ID,
				"error", err.Error(),
			)
			continue
		}
		for _, item := range items {
			switch item.Status {
			case models.GenerationSuccess:
				result.Generated++
			case models.GenerationSkipped:
				result.Skipped++
			case models.GenerationFailed:
				result.Failed++
			}
			result.Items = append(result.Items, item)
		}
	}

	return result, nil
}

// generateOne catches up a single expense to asOf inside one database
// transaction.
func (s *recurringService) generateOne(ctx context.Context, expense *models.RecurringExpense, asOf time.Time) ([]GenerationItem, error) {
	var items []GenerationItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		next := expense.NextGenerate
		for next != nil && !next.After(asOf) {
			date := dateOnly(*next)

			if expense.EndDate != nil && date.After(*expense.EndDate) {
				expense.NextGenerate = nil
				break
			}

			item, err := s.generateOccurrence(tx, expense, date)
			if err != nil {
				return err
			}
			items = append(items, item)

			expense.LastGenerated = &date
			candidate := nextOccurrence(expense, date)
			if expense.EndDate != nil && candidate.After(*expense.EndDate) {
				expense.NextGenerate = nil
			} else {
				expense.NextGenerate = &candidate
			}
			next = expense.NextGenerate
		}

		return tx.Model(expense).Updates(map[string]interface{}{
			"last_generated": expense.LastGenerated,
			"next_generate":  expense.NextGenerate,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Status == models.GenerationSuccess && item.TransactionID != nil {
			if err := s.publisher.Publish(ctx, events.New(events.RecurringGenerated, expense.UserID, *item.TransactionID)); err != nil {
				logger.Get().Warnw("event publish failed",
					"type", events.RecurringGenerated,
					"entity_id", *item.TransactionID,
					"error", err.Error(),
				)
			}
		}
	}

	return items, nil
}

// maxHolidayRoll bounds the search for an open booking day.
const maxHolidayRoll = 14

// generateOccurrence produces the transaction and audit row for one scheduled
// date. The unique (recurring_expense_id, generate_date) index makes the whole
// operation idempotent: a date that was already processed is reported as
// skipped without creating a duplicate transaction. With skip_holidays set, an
// occurrence falling on a holiday is booked on the next non-holiday day while
// the audit row stays keyed on the scheduled date.
func (s *recurringService) generateOccurrence(tx *gorm.DB, expense *models.RecurringExpense, date time.Time) (GenerationItem, error) {
	item := GenerationItem{
		RecurringExpenseID: expense.ID,
		Name:               expense.Name,
		Date:               date,
	}

	var existing int64
	if err := tx.Model(&models.RecurringGenerationLog{}).
		Where("recurring_expense_id = ? AND generate_date = ?", expense.ID, date).
		Count(&existing).Error; err != nil {
		return item, err
	}
	if existing > 0 {
		item.Status = models.GenerationSkipped
		item.Message = "already generated"
		return item, nil
	}

	bookDate := date
	if expense.SkipHolidays {
		for i := 0; s.calendar.IsHoliday(bookDate) && i < maxHolidayRoll; i++ {
			bookDate = bookDate.AddDate(0, 0, 1)
		}
		if s.calendar.IsHoliday(bookDate) {
			// No open day within reach; record the attempt and move on
			log := &models.RecurringGenerationLog{
				RecurringExpenseID: expense.ID,
				GenerateDate:       date,
				Status:             models.GenerationSkipped,
				Message:            "holiday",
			}
			if err := tx.Create(log).Error; err != nil {
				return item, err
			}
			item.Status = models.GenerationSkipped
			item.Message = "holiday"
			return item, nil
		}
	}

	categoryID := expense.CategoryID
	transaction := &models.Transaction{
		UserID:             expense.UserID,
		CategoryID:         &categoryID,
		PaymentMethodID:    expense.PaymentMethodID,
		Type:               models.TransactionTypeExpense,
		Amount:             expense.Amount,
		Currency:           expense.Currency,
		Date:               bookDate,
		Note:               expense.Name,
		RecurringExpenseID: &expense.ID,
		IsGenerated:        true,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return item, err
	}

	log := &models.RecurringGenerationLog{
		RecurringExpenseID: expense.ID,
		TransactionID:      &transaction.ID,
		GenerateDate:       date,
		Status:             models.GenerationSuccess,
	}
	if !bookDate.Equal(date) {
		log.Message = "holiday, booked " + bookDate.Format("2006-01-02")
		item.Message = log.Message
	}
	if err := tx.Create(log).Error; err != nil {
		return item, err
	}

	item.Status = models.GenerationSuccess
	item.TransactionID = &transaction.ID
	return item, nil
}

// GetGenerationLogs retrieves the generation history for a recurring expense.
func (s *recurringService) GetGenerationLogs(userID, recurringID string, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringGenerationLog], error) {
	// Ownership check
	if _, err := s.GetRecurringByID(userID, recurringID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.RecurringGenerationLog{}).Where("recurring_expense_id = ?", recurringID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.RecurringGenerationLog
	if err := base.Order("generate_date DESC").Scopes(pagination.Paginate(page)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(logs, page.Page, page.PageSize, totalItems)
	return &result, nil
}
