package repository

import (
	"context"

	"basmah/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, e *models.AdminActionLog) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditLogRepository) ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.AdminActionLog, error) {
	var list []models.AdminActionLog
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *AuditLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.AdminActionLog, error) {
	var list []models.AdminActionLog
	err := r.db.WithContext(ctx).Where("target_user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Append(ctx context.Context, e *models.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *OutboxRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]models.OutboxEvent, error) {
	var list []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND attempts < ?", maxAttempts).
		Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).
		Update("published_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint, cause string) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}
