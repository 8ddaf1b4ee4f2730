package services

import (
	"context"
	"testing"

	"moneta/internal/events"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestCreatePaymentMethod(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		method, err := svc.CreatePaymentMethod(user.ID, "Visa", models.PaymentMethodTypeCreditCard, false)
		testutil.AssertNoError(t, err)

		if method.ID == "" {
			t.Fatal("expected non-empty payment method ID")
		}
		if method.IsDefault {
			t.Error("did not expect default flag")
		}
	})

	t.Run("new_default_clears_previous", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		first, err := svc.CreatePaymentMethod(user.ID, "Visa", models.PaymentMethodTypeCreditCard, true)
		testutil.AssertNoError(t, err)

		_, err = svc.CreatePaymentMethod(user.ID, "Cash", models.PaymentMethodTypeCash, true)
		testutil.AssertNoError(t, err)

		var defaults int64
		db.Model(&models.PaymentMethod{}).Where("user_id = ? AND is_default = ?", user.ID, true).Count(&defaults)
		if defaults != 1 {
			t.Errorf("expected exactly one default, got %d", defaults)
		}

		reloaded, err := svc.GetPaymentMethodByID(user.ID, first.ID)
		testutil.AssertNoError(t, err)
		if reloaded.IsDefault {
			t.Error("expected the first method to lose its default flag")
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreatePaymentMethod(user.ID, "", models.PaymentMethodTypeCash, false)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestSetDefault(t *testing.T) {
	t.Run("moves_default_atomically", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		first, err := svc.CreatePaymentMethod(user.ID, "Visa", models.PaymentMethodTypeCreditCard, true)
		testutil.AssertNoError(t, err)
		second, err := svc.CreatePaymentMethod(user.ID, "Cash", models.PaymentMethodTypeCash, false)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.SetDefault(user.ID, second.ID))

		var defaults []models.PaymentMethod
		db.Where("user_id = ? AND is_default = ?", user.ID, true).Find(&defaults)
		if len(defaults) != 1 {
			t.Fatalf("expected exactly one default, got %d", len(defaults))
		}
		if defaults[0].ID != second.ID {
			t.Error("expected the second method to be default")
		}
		_ = first
	})

	t.Run("inactive_method_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)

		method, err := svc.CreatePaymentMethod(user.ID, "Old Card", models.PaymentMethodTypeCreditCard, false)
		testutil.AssertNoError(t, err)
		if err := db.Model(method).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate method: %v", err)
		}

		err = svc.SetDefault(user.ID, method.ID)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("other_users_method_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user1 := testutil.CreateTestUser(t, db)
		user2 := testutil.CreateTestUser(t, db)
		method := testutil.CreateTestPaymentMethod(t, db, user2.ID)

		err := svc.SetDefault(user1.ID, method.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")
	})
}

func TestDeletePaymentMethod(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected_while_in_use_without_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		method := testutil.CreateTestPaymentMethod(t, db, user.ID)

		tx := testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, 1000)
		if err := db.Model(tx).Update("payment_method_id", method.ID).Error; err != nil {
			t.Fatalf("failed to attach payment method: %v", err)
		}

		_, err := svc.DeletePaymentMethod(ctx, user.ID, method.ID, nil)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_IN_USE")
	})

	t.Run("migrates_transactions_to_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		source := testutil.CreateTestPaymentMethod(t, db, user.ID)
		target := testutil.CreateTestPaymentMethod(t, db, user.ID)

		for i := 0; i < 2; i++ {
			tx := testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, 1000)
			if err := db.Model(tx).Update("payment_method_id", source.ID).Error; err != nil {
				t.Fatalf("failed to attach payment method: %v", err)
			}
		}

		migrated, err := svc.DeletePaymentMethod(ctx, user.ID, source.ID, &target.ID)
		testutil.AssertNoError(t, err)
		if migrated != 2 {
			t.Errorf("expected 2 migrated transactions, got %d", migrated)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("payment_method_id = ?", target.ID).Count(&count)
		if count != 2 {
			t.Errorf("expected 2 transactions on target, got %d", count)
		}

		_, err = svc.GetPaymentMethodByID(user.ID, source.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")
	})

	t.Run("soft_deleted_transactions_are_migrated_too", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db, events.NopPublisher{})
		user := testutil.CreateTestUser(t, db)
		source := testutil.CreateTestPaymentMethod(t, db, user.ID)
		target := testutil.CreateTestPaymentMethod(t, db, user.ID)

		tx := testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, 1000)
		if err := db.Model(tx).Update("payment_method_id", source.ID).Error; err != nil {
			t.Fatalf("failed to attach payment method: %v", err)
		}
		if err := db.Delete(tx).Error; err != nil {
			t.Fatalf("failed to soft delete transaction: %v", err)
		}

		migrated, err := svc.DeletePaymentMethod(ctx, user.ID, source.ID, &target.ID)
		testutil.AssertNoError(t, err)
		if migrated != 1 {
			t.Errorf("expected 1 migrated transaction, got %d", migrated)
		}

		// A later restore must come back referencing the target method
		var reloaded models.Transaction
		if err := db.Unscoped().First(&reloaded, "id = ?", tx.ID).Error; err != nil {
			t.Fatalf("failed to reload transaction: %v", err)
		}
		if reloaded.PaymentMethodID == nil || *reloaded.PaymentMethodID != target.ID {
			t.Errorf("expected soft-deleted transaction on target method, got %v", reloaded.PaymentMethodID)
		}
	})
}
