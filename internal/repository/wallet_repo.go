package repository

import (
	"context"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *WalletRepository) Create(ctx context.Context, w *models.Wallet) error {
	return translate(r.db.WithContext(ctx).Create(w).Error)
}

func (r *WalletRepository) Update(ctx context.Context, w *models.Wallet) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]interface{}{
			"balance":      w.Balance,
			"total_earned": w.TotalEarned,
			"total_spent":  w.TotalSpent,
			"is_active":    w.IsActive,
			"version":      w.Version + 1,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	w.Version++
	return nil
}

func (r *WalletRepository) ListAfter(ctx context.Context, afterID uint, limit int) ([]models.Wallet, error) {
	var list []models.Wallet
	err := r.db.WithContext(ctx).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *WalletRepository) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, page, limit int) ([]models.WalletTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.WalletTransaction
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *WalletRepository) LedgerTotals(ctx context.Context, userID string) (decimal.Decimal, decimal.Decimal, error) {
	var row struct {
		Earned decimal.Decimal
		Spent  decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS earned, "+
			"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS spent").
		Where("user_id = ? AND transaction_type IN ?", userID, domain.MoneyTxTypes).
		Scan(&row).Error
	return row.Earned, row.Spent, err
}

func (r *WalletRepository) HasRefund(ctx context.Context, userID, bookingID, description string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("user_id = ? AND transaction_type = ?", userID, domain.WalletTxRefund).
		Where("reference = ? OR ((reference = '' OR reference IS NULL) AND description = ?)", bookingID, description).
		Count(&n).Error
	return n > 0, err
}
