package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransaction is an append-only ledger row. Rows are never updated or deleted.
type WalletTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          string          `gorm:"size:36;not null;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // positive = credit, negative = debit
	TransactionType string          `gorm:"size:20;not null;index" json:"transaction_type"`
	Description     string          `gorm:"size:512" json:"description"`
	Reference       string          `gorm:"size:64;index" json:"reference"` // booking id for refunds
	CreatedAt       time.Time       `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
