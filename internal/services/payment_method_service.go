package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// paymentMethodService handles payment-method business logic.
type paymentMethodService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewPaymentMethodService creates a new PaymentMethodServicer.
func NewPaymentMethodService(db *gorm.DB, publisher events.Publisher) PaymentMethodServicer {
	return &paymentMethodService{db: db, publisher: publisher}
}

// CreatePaymentMethod creates a new payment method
func (s *paymentMethodService) CreatePaymentMethod(userID, name string, methodType models.PaymentMethodType, isDefault bool) (*models.PaymentMethod, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment method name is required")
	}

	method := &models.PaymentMethod{
		UserID:    userID,
		Name:      name,
		Type:      methodType,
		IsDefault: isDefault,
		IsActive:  true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if isDefault {
			// Only one default per user
			if err := tx.Model(&models.PaymentMethod{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Create(method).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return method, nil
}

// GetUserPaymentMethods retrieves a paginated list of payment methods.
func (s *paymentMethodService) GetUserPaymentMethods(userID string, page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.PaymentMethod], error) {
	page.Defaults()

	base := s.db.Model(&models.PaymentMethod{}).Where("user_id = ?", userID)
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var methods []models.PaymentMethod
	if err := base.Order("sort_order ASC, name ASC").Scopes(pagination.Paginate(page)).Find(&methods).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(methods, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPaymentMethodByID retrieves a payment method by ID for a specific user
func (s *paymentMethodService) GetPaymentMethodByID(userID, methodID string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := s.db.Where("id = ? AND user_id = ?", methodID, userID).First(&method).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentMethodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &method, nil
}

// UpdatePaymentMethod updates an existing payment method
func (s *paymentMethodService) UpdatePaymentMethod(userID, methodID, name string, sortOrder *int, isActive *bool) (*models.PaymentMethod, error) {
	method, err := s.GetPaymentMethodByID(userID, methodID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if sortOrder != nil {
		updates["sort_order"] = *sortOrder
	}
	if isActive != nil {
		updates["is_active"] = *isActive
		// A deactivated method cannot stay the default
		if !*isActive && method.IsDefault {
			updates["is_default"] = false
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(method).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return method, nil
}

// SetDefault marks a payment method as the user's default, clearing any
// previous default in the same transaction.
func (s *paymentMethodService) SetDefault(userID, methodID string) error {
	method, err := s.GetPaymentMethodByID(userID, methodID)
	if err != nil {
		return err
	}
	if !method.IsActive {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot set an inactive payment method as default")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentMethod{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(method).Update("is_default", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// DeletePaymentMethod removes a payment method. When migrateTo is set,
// referencing transactions are moved to the target method first and the number
// of moved transactions is returned. Without a target, deletion is rejected
// while live transactions still reference the method.
func (s *paymentMethodService) DeletePaymentMethod(ctx context.Context, userID, methodID string, migrateTo *string) (int64, error) {
	method, err := s.GetPaymentMethodByID(userID, methodID)
	if err != nil {
		return 0, err
	}

	var target *models.PaymentMethod
	if migrateTo != nil {
		if *migrateTo == methodID {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot migrate a payment method to itself")
		}
		target, err = s.GetPaymentMethodByID(userID, *migrateTo)
		if err != nil {
			return 0, err
		}
	}

	var migrated int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Soft-deleted transactions count and migrate too; a restore must not
		// bring back a reference to the deleted method
		if target == nil {
			var refs int64
			if err := tx.Unscoped().Model(&models.Transaction{}).
				Where("user_id = ? AND payment_method_id = ?", userID, methodID).
				Count(&refs).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if refs > 0 {
				return apperrors.ErrPaymentMethodInUse
			}
		} else {
			result := tx.Unscoped().Model(&models.Transaction{}).
				Where("user_id = ? AND payment_method_id = ?", userID, methodID).
				Update("payment_method_id", target.ID)
			if result.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
			}
			migrated = result.RowsAffected

			if err := tx.Model(&models.RecurringExpense{}).
				Where("user_id = ? AND payment_method_id = ?", userID, methodID).
				Update("payment_method_id", target.ID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Delete(method).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.publisher.Publish(ctx, events.New(events.PaymentMethodChanged, userID, methodID)); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", events.PaymentMethodChanged,
			"entity_id", methodID,
			"error", err.Error(),
		)
	}

	return migrated, nil
}
