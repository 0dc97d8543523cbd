package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet caches the running totals of a user's ledger. The wallet_transactions
// rows are the source of truth; Balance must equal TotalEarned - TotalSpent.
type Wallet struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	TotalEarned decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_earned"`
	TotalSpent  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_spent"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	Version     int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "user_wallets"
}

func (w *Wallet) Consistent() bool {
	return w.Balance.Equal(w.TotalEarned.Sub(w.TotalSpent))
}
