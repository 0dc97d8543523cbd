package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TicketPolicy holds the product decisions the ticket state machine defers to config.
type TicketPolicy struct {
	// AllowBackdatedExpiry accepts expiry instants in the past, used for
	// corrective data entry.
	AllowBackdatedExpiry bool
}

// TicketService enforces the ticket lifecycle. active moves freely between
// active, used and expired; cancelled is terminal.
type TicketService struct {
	st      repository.Stores
	wallets *WalletService
	policy  TicketPolicy
	now     func() time.Time
}

func NewTicketService(st repository.Stores, wallets *WalletService, policy TicketPolicy) *TicketService {
	return &TicketService{st: st, wallets: wallets, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// WithStores returns a copy of the service, and its wallet service, bound to st.
func (s *TicketService) WithStores(st repository.Stores) *TicketService {
	c := *s
	c.st = st
	c.wallets = s.wallets.WithStores(st)
	return &c
}

// Get loads a booking for display.
func (s *TicketService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.load(ctx, bookingID)
}

func (s *TicketService) load(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.st.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, errors.Wrapf(err, "booking %s", bookingID)
	}
	return b, nil
}

func (s *TicketService) loadMutable(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.IsCancelled() {
		return nil, errors.Wrapf(ErrTicketCancelled, "booking %s", b.BookingNumber)
	}
	return b, nil
}

type StatusChange struct {
	Booking *models.Booking
	From    domain.TicketStatus
	To      domain.TicketStatus
}

// ChangeStatus overrides the ticket status. Moving to used stamps used_at and
// used_by only the first time; cancelling this way never touches the wallet.
func (s *TicketService) ChangeStatus(ctx context.Context, bookingID string, to domain.TicketStatus, actorName string) (*StatusChange, error) {
	if !to.Valid() {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", to)
	}
	b, err := s.loadMutable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := b.TicketStatus
	b.TicketStatus = to
	b.IsUsed = to == domain.TicketUsed
	if to == domain.TicketUsed && b.UsedAt == nil {
		b.UsedAt = &now
		b.UsedBy = actorName
	}
	if to == domain.TicketCancelled {
		b.CancelledAt = &now
		b.CancelledBy = actorName
	}
	b.UpdatedAt = now
	if err := s.st.Bookings().Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "update booking status")
	}
	return &StatusChange{Booking: b, From: from, To: to}, nil
}

type ExpiryChange struct {
	Booking  *models.Booking
	Previous *time.Time
}

func (s *TicketService) ExtendExpiry(ctx context.Context, bookingID string, expiry time.Time) (*ExpiryChange, error) {
	if expiry.IsZero() {
		return nil, ErrInvalidExpiry
	}
	now := s.now()
	if !s.policy.AllowBackdatedExpiry && expiry.Before(now) {
		return nil, errors.Wrap(ErrInvalidExpiry, "expiry is in the past")
	}
	b, err := s.loadMutable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	prev := b.ExpiryDate
	expiry = expiry.UTC()
	b.ExpiryDate = &expiry
	b.UpdatedAt = now
	if err := s.st.Bookings().Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "update booking expiry")
	}
	return &ExpiryChange{Booking: b, Previous: prev}, nil
}

// Recipient identifies the account a ticket is transferred to.
type Recipient struct {
	By    string // email, phone or user_id
	Value string
}

func (r Recipient) String() string {
	return r.By + ":" + r.Value
}

type Transfer struct {
	Booking    *models.Booking
	FromUserID string
	To         *models.Profile
}

// TransferOwnership moves the ticket to the single account matching to.
// Eligibility is checked before the recipient is resolved.
func (s *TicketService) TransferOwnership(ctx context.Context, bookingID string, to Recipient) (*Transfer, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Transferable() {
		return nil, errors.Wrapf(ErrNotTransferable, "booking %s is %s", b.BookingNumber, b.TicketStatus)
	}
	target, err := s.resolve(ctx, to)
	if err != nil {
		return nil, err
	}
	if target.ID == b.UserID {
		return nil, ErrAlreadyOwned
	}
	from := b.UserID
	b.UserID = target.ID
	b.UpdatedAt = s.now()
	if err := s.st.Bookings().Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "update booking owner")
	}
	return &Transfer{Booking: b, FromUserID: from, To: target}, nil
}

func (s *TicketService) resolve(ctx context.Context, to Recipient) (*models.Profile, error) {
	value := strings.TrimSpace(to.Value)
	if value == "" {
		return nil, errors.Wrap(ErrRecipientNotFound, "empty recipient")
	}
	var (
		matches []models.Profile
		err     error
	)
	switch to.By {
	case domain.ResolveByEmail:
		matches, err = s.st.Profiles().FindByEmail(ctx, value)
	case domain.ResolveByPhone:
		matches, err = s.st.Profiles().FindByPhone(ctx, value)
	case domain.ResolveByUserID:
		var p *models.Profile
		p, err = s.st.Profiles().GetByID(ctx, value)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.Wrapf(ErrRecipientNotFound, "%s", to)
		}
		if p != nil {
			matches = []models.Profile{*p}
		}
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown recipient lookup %q", to.By)
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolve recipient")
	}
	if len(matches) != 1 {
		return nil, errors.Wrapf(ErrRecipientNotFound, "%s matched %d accounts", to, len(matches))
	}
	return &matches[0], nil
}

type Cancellation struct {
	Booking  *models.Booking
	Refunded decimal.Decimal
	Ledger   *LedgerEntry // nil when nothing was credited
}

// CancelWithRefund cancels the ticket and credits its total to the owner's
// wallet. A zero total cancels without touching the wallet.
func (s *TicketService) CancelWithRefund(ctx context.Context, bookingID, actorName string) (*Cancellation, error) {
	b, err := s.loadMutable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.TotalAmount.IsNegative() {
		return nil, errors.Wrapf(ErrInvalidAmount, "booking %s total %s", b.BookingNumber, b.TotalAmount)
	}
	if b.RefundedAmount.GreaterThan(b.TotalAmount) {
		return nil, errors.Wrapf(ErrInvalidAmount, "booking %s already records refund %s above total %s",
			b.BookingNumber, b.RefundedAmount, b.TotalAmount)
	}
	now := s.now()
	refund := b.TotalAmount
	s.markCancelled(b, actorName, now)
	b.RefundedAmount = refund
	b.RefundedAt = &now
	if err := s.st.Bookings().Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "cancel booking")
	}
	c := &Cancellation{Booking: b, Refunded: refund}
	if refund.IsPositive() {
		entry, err := s.wallets.Credit(ctx, b.UserID, refund, domain.WalletTxRefund, RefundDescription(b), b.ID)
		if err != nil {
			return nil, errors.Wrap(err, "refund to wallet")
		}
		c.Ledger = entry
	}
	return c, nil
}

func (s *TicketService) CancelWithoutRefund(ctx context.Context, bookingID, actorName string) (*Cancellation, error) {
	b, err := s.loadMutable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.markCancelled(b, actorName, s.now())
	b.RefundedAmount = decimal.Zero
	if err := s.st.Bookings().Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "cancel booking")
	}
	return &Cancellation{Booking: b, Refunded: decimal.Zero}, nil
}

func (s *TicketService) markCancelled(b *models.Booking, actorName string, now time.Time) {
	b.TicketStatus = domain.TicketCancelled
	b.CancelledAt = &now
	b.CancelledBy = actorName
	b.UpdatedAt = now
}

// DeletePermanently removes the booking row. beforeDelete runs with the loaded
// booking so the caller can record it before the row is gone.
func (s *TicketService) DeletePermanently(ctx context.Context, bookingID string, beforeDelete func(*models.Booking) error) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if beforeDelete != nil {
		if err := beforeDelete(b); err != nil {
			return nil, err
		}
	}
	if err := s.st.Bookings().Delete(ctx, b.ID); err != nil {
		return nil, errors.Wrapf(err, "delete booking %s", b.BookingNumber)
	}
	return b, nil
}

// RepairRefund credits a cancelled booking whose refund never reached the
// ledger. It is a no-op returning nil when the ledger already has the credit.
func (s *TicketService) RepairRefund(ctx context.Context, bookingID string) (*Cancellation, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsCancelled() || !b.RefundedAmount.IsPositive() {
		return nil, nil
	}
	done, err := s.st.Wallets().HasRefund(ctx, b.UserID, b.ID, RefundDescription(b))
	if err != nil {
		return nil, errors.Wrap(err, "check refund ledger")
	}
	if done {
		return nil, nil
	}
	entry, err := s.wallets.Credit(ctx, b.UserID, b.RefundedAmount, domain.WalletTxRefund, RefundDescription(b), b.ID)
	if err != nil {
		return nil, errors.Wrap(err, "repair refund")
	}
	return &Cancellation{Booking: b, Refunded: b.RefundedAmount, Ledger: entry}, nil
}

// RefundDescription is the ledger description of a booking refund.
func RefundDescription(b *models.Booking) string {
	return fmt.Sprintf("refund for booking %s", b.BookingNumber)
}
