package repository

import (
	"context"

	"basmah/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStore interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// Update writes lifecycle, ownership and refund columns guarded by the
	// booking version. On success b.Version is advanced.
	Update(ctx context.Context, b *models.Booking) error
	Delete(ctx context.Context, id string) error
	// ListRefunded pages cancelled bookings with a recorded refund amount,
	// ordered by id, starting after afterID.
	ListRefunded(ctx context.Context, afterID string, limit int) ([]models.Booking, error)
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) ([]models.Profile, error)
	FindByPhone(ctx context.Context, phone string) ([]models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// AddPoints applies delta and returns the new counter value.
	AddPoints(ctx context.Context, id string, delta int64) (int64, error)
	Delete(ctx context.Context, id string) error
}

type WalletStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	Create(ctx context.Context, w *models.Wallet) error
	// Update writes balance columns guarded by the wallet version.
	Update(ctx context.Context, w *models.Wallet) error
	ListAfter(ctx context.Context, afterID uint, limit int) ([]models.Wallet, error)
	AppendTransaction(ctx context.Context, t *models.WalletTransaction) error
	ListTransactions(ctx context.Context, userID string, page, limit int) ([]models.WalletTransaction, int64, error)
	// LedgerTotals sums money-moving transactions: credits and the absolute value of debits.
	LedgerTotals(ctx context.Context, userID string) (earned, spent decimal.Decimal, err error)
	// HasRefund reports whether the user's ledger already holds the refund of a
	// booking: a refund row referencing it, or a legacy row without reference
	// carrying the booking's refund description.
	HasRefund(ctx context.Context, userID, bookingID, description string) (bool, error)
}

type AuditLogStore interface {
	Append(ctx context.Context, e *models.AdminActionLog) error
	ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.AdminActionLog, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AdminActionLog, error)
}

type OutboxStore interface {
	Append(ctx context.Context, e *models.OutboxEvent) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, cause string) error
}

// Stores groups every table the admin core touches.
type Stores interface {
	Bookings() BookingStore
	Profiles() ProfileStore
	Wallets() WalletStore
	AuditLogs() AuditLogStore
	Outbox() OutboxStore
}

// TxStore runs fn against stores bound to a single database transaction.
// Returning an error from fn rolls every write back.
type TxStore interface {
	Stores
	Transaction(ctx context.Context, fn func(tx Stores) error) error
}

// Store is the gorm-backed TxStore.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Bookings() BookingStore   { return NewBookingRepository(s.db) }
func (s *Store) Profiles() ProfileStore   { return NewProfileRepository(s.db) }
func (s *Store) Wallets() WalletStore     { return NewWalletRepository(s.db) }
func (s *Store) AuditLogs() AuditLogStore { return NewAuditLogRepository(s.db) }
func (s *Store) Outbox() OutboxStore      { return NewOutboxRepository(s.db) }

func (s *Store) Transaction(ctx context.Context, fn func(tx Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
