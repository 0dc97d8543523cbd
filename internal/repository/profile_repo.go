package repository

import (
	"context"
	"strings"

	"basmah/internal/models"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) ([]models.Profile, error) {
	var list []models.Profile
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Limit(2).Find(&list).Error
	return list, err
}

func (r *ProfileRepository) FindByPhone(ctx context.Context, phone string) ([]models.Profile, error) {
	var list []models.Profile
	err := r.db.WithContext(ctx).Where("phone = ?", strings.TrimSpace(phone)).Limit(2).Find(&list).Error
	return list, err
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProfileRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows when values are unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProfileRepository) AddPoints(ctx context.Context, id string, delta int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Points, nil
}

// Delete soft-deletes the profile; history rows keep their references.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Profile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
