package repository

import (
	"context"
	"errors"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	b.SyncStatus()
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]interface{}{
			"user_id":         b.UserID,
			"status":          b.Status,
			"ticket_status":   b.TicketStatus,
			"expiry_date":     b.ExpiryDate,
			"is_used":         b.IsUsed,
			"used_at":         b.UsedAt,
			"used_by":         b.UsedBy,
			"cancelled_at":    b.CancelledAt,
			"cancelled_by":    b.CancelledBy,
			"refunded_amount": b.RefundedAmount,
			"refunded_at":     b.RefundedAt,
			"version":         b.Version + 1,
			"updated_at":      b.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, b.ID)
	}
	b.Version++
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Booking{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) ListRefunded(ctx context.Context, afterID string, limit int) ([]models.Booking, error) {
	var list []models.Booking
	err := r.db.WithContext(ctx).
		Where("ticket_status = ? AND refunded_amount > 0 AND id > ?", domain.TicketCancelled, afterID).
		Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *BookingRepository) missingOrConflict(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// translate maps gorm sentinel errors onto repository ones. The connection
// must be opened with TranslateError for duplicate keys to surface here.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}
