package services

import (
	"encoding/json"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// systemLogService persists structured log rows for later inspection.
type systemLogService struct {
	db *gorm.DB
}

// NewSystemLogService creates a new SystemLogServicer.
func NewSystemLogService(db *gorm.DB) SystemLogServicer {
	return &systemLogService{db: db}
}

// Log writes a system log row. Failures are swallowed and reported through the
// process logger only, so callers never fail because of log persistence.
func (s *systemLogService) Log(level, category, traceID, userID, message string, metadata map[string]interface{}) {
	var metadataJSON string
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	entry := &models.SystemLog{
		Level:    level,
		Category: category,
		TraceID:  traceID,
		UserID:   userID,
		Message:  message,
		Metadata: metadataJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to write system log",
			"category", category,
			"message", message,
			"error", err.Error(),
		)
	}
}

// ListLogs retrieves a paginated, filtered list of system logs, newest first.
func (s *systemLogService) ListLogs(filter SystemLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.SystemLog], error) {
	page.Defaults()

	base := s.db.Model(&models.SystemLog{})
	if filter.Level != "" {
		base = base.Where("level = ?", filter.Level)
	}
	if filter.Category != "" {
		base = base.Where("category = ?", filter.Category)
	}
	if filter.UserID != "" {
		base = base.Where("user_id = ?", filter.UserID)
	}
	if filter.FromDate != nil {
		base = base.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("created_at <= ?", *filter.ToDate)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.SystemLog
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(logs, page.Page, page.PageSize, totalItems)
	return &result, nil
}
