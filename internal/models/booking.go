package models

import (
	"time"

	"basmah/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking is a single purchased ticket. Rows are created by the purchase flow;
// this service only mutates lifecycle, ownership and refund columns.
type Booking struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	BookingNumber  string              `gorm:"uniqueIndex;size:32;not null" json:"booking_number"`
	UserID         string              `gorm:"size:36;not null;index" json:"user_id"`
	ActivityID     string              `gorm:"size:36;index" json:"activity_id"`
	PartnerID      string              `gorm:"size:36;index" json:"partner_id"`
	TicketType     string              `gorm:"size:50" json:"ticket_type"`
	Quantity       int                 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice      decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	Subtotal       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Taxes          decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"taxes"`
	Discount       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	RefundedAmount decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"refunded_amount"`
	Status         string              `gorm:"size:20;not null;index" json:"status"` // derived from TicketStatus
	TicketStatus   domain.TicketStatus `gorm:"size:20;not null;index;default:'active'" json:"ticket_status"`
	BookingDate    time.Time           `json:"booking_date"`
	ScheduledDate  *time.Time          `json:"scheduled_date"`
	ExpiryDate     *time.Time          `json:"expiry_date"`
	IsUsed         bool                `gorm:"not null;default:false" json:"is_used"`
	UsedAt         *time.Time          `json:"used_at"`
	UsedBy         string              `gorm:"size:255" json:"used_by"`
	CancelledAt    *time.Time          `json:"cancelled_at"`
	CancelledBy    string              `gorm:"size:255" json:"cancelled_by"`
	RefundedAt     *time.Time          `json:"refunded_at"`
	Version        int64               `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.TicketStatus == "" {
		b.TicketStatus = domain.TicketActive
	}
	b.SyncStatus()
	return nil
}

// SyncStatus recomputes the booking-level status column.
func (b *Booking) SyncStatus() {
	b.Status = b.TicketStatus.BookingStatus()
}

func (b *Booking) IsCancelled() bool { return b.TicketStatus == domain.TicketCancelled }

// Transferable reports whether ownership may still change hands.
func (b *Booking) Transferable() bool {
	return !b.IsCancelled() && !b.IsUsed
}
