package database

import (
	"context"

	"basmah/config"
	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/service"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true, // duplicate keys surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// Ping reports whether the pool can reach the server.
func Ping(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// AutoMigrate creates or alters the admin core tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Booking{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.AdminActionLog{},
		&models.OutboxEvent{},
	)
}

// SeedAdmin creates the bootstrap administrator through the audited path.
// An existing account with the same email is left untouched.
func SeedAdmin(ctx context.Context, actions *service.AdminActionService, cfg config.AdminSeedConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	p, err := actions.CreateUser(ctx, service.SystemActor, service.NewUser{
		Email:    cfg.Email,
		Password: cfg.Password,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "seed admin")
	}
	log.Info().Str("email", p.Email).Msg("seeded admin account")
	return nil
}
