package service

import (
	"context"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// WalletPolicy controls debit behaviour.
type WalletPolicy struct {
	// AllowNegative lets a debit take the balance below zero and lazily
	// create a missing wallet, matching the legacy dashboard.
	AllowNegative bool
}

// WalletService moves money between a user's wallet and the outside world.
// Every balance change appends exactly one signed ledger row and must be
// called with stores bound to the caller's transaction.
type WalletService struct {
	st     repository.Stores
	policy WalletPolicy
	now    func() time.Time
}

func NewWalletService(st repository.Stores, policy WalletPolicy) *WalletService {
	return &WalletService{st: st, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// WithStores returns a copy of the service bound to st, usually a transaction.
func (s *WalletService) WithStores(st repository.Stores) *WalletService {
	c := *s
	c.st = st
	return &c
}

// LedgerEntry is the outcome of a balance change.
type LedgerEntry struct {
	Wallet      *models.Wallet
	Transaction *models.WalletTransaction
}

// Credit adds amount to the wallet, creating it on first use. txType must be
// add or refund.
func (s *WalletService) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType, description, reference string) (*LedgerEntry, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if txType != domain.WalletTxAdd && txType != domain.WalletTxRefund {
		return nil, errors.Wrapf(ErrInvalidInput, "credit type %q", txType)
	}
	w, err := s.st.Wallets().GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		w = &models.Wallet{UserID: userID, Balance: amount, TotalEarned: amount, TotalSpent: decimal.Zero, IsActive: true}
		if err := s.st.Wallets().Create(ctx, w); err != nil {
			return nil, errors.Wrap(err, "create wallet")
		}
	case err != nil:
		return nil, errors.Wrap(err, "load wallet")
	default:
		w.Balance = w.Balance.Add(amount)
		w.TotalEarned = w.TotalEarned.Add(amount)
		if err := s.save(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.append(ctx, w, amount, txType, description, reference)
}

// Debit removes amount from the wallet.
func (s *WalletService) Debit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) (*LedgerEntry, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	w, err := s.st.Wallets().GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if !s.policy.AllowNegative {
			return nil, errors.Wrap(ErrInsufficientFunds, "user has no wallet")
		}
		w = &models.Wallet{UserID: userID, Balance: amount.Neg(), TotalEarned: decimal.Zero, TotalSpent: amount, IsActive: true}
		if err := s.st.Wallets().Create(ctx, w); err != nil {
			return nil, errors.Wrap(err, "create wallet")
		}
	case err != nil:
		return nil, errors.Wrap(err, "load wallet")
	default:
		next := w.Balance.Sub(amount)
		if next.IsNegative() && !s.policy.AllowNegative {
			return nil, errors.Wrapf(ErrInsufficientFunds, "balance %s, debit %s", w.Balance.StringFixed(2), amount.StringFixed(2))
		}
		w.Balance = next
		w.TotalSpent = w.TotalSpent.Add(amount)
		if err := s.save(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.append(ctx, w, amount.Neg(), domain.WalletTxDeduct, description, reference)
}

func (s *WalletService) save(ctx context.Context, w *models.Wallet) error {
	if !w.Consistent() {
		return errors.Wrapf(ErrLedgerInvariant, "wallet %s: balance %s, earned %s, spent %s",
			w.UserID, w.Balance.StringFixed(2), w.TotalEarned.StringFixed(2), w.TotalSpent.StringFixed(2))
	}
	return errors.Wrap(s.st.Wallets().Update(ctx, w), "update wallet")
}

func (s *WalletService) append(ctx context.Context, w *models.Wallet, signed decimal.Decimal, txType, description, reference string) (*LedgerEntry, error) {
	if !w.Consistent() {
		return nil, errors.Wrapf(ErrLedgerInvariant, "wallet %s", w.UserID)
	}
	tx := &models.WalletTransaction{
		UserID:          w.UserID,
		Amount:          signed,
		TransactionType: txType,
		Description:     description,
		Reference:       reference,
		CreatedAt:       s.now(),
	}
	if err := s.st.Wallets().AppendTransaction(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "append wallet transaction")
	}
	return &LedgerEntry{Wallet: w, Transaction: tx}, nil
}

// AdjustPoints applies delta to the profile points counter and returns the new
// value. The counter has no floor.
func (s *WalletService) AdjustPoints(ctx context.Context, userID string, delta int64) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	points, err := s.st.Profiles().AddPoints(ctx, userID, delta)
	if err != nil {
		return 0, errors.Wrap(err, "adjust points")
	}
	return points, nil
}

// RecordPointsTransaction writes the traceability row for a points change.
// Points rows never count toward the wallet balance.
func (s *WalletService) RecordPointsTransaction(ctx context.Context, userID string, delta int64, description string) error {
	txType := domain.WalletTxPointsAdd
	if delta < 0 {
		txType = domain.WalletTxPointsDeduct
	}
	return s.st.Wallets().AppendTransaction(ctx, &models.WalletTransaction{
		UserID:          userID,
		Amount:          decimal.NewFromInt(delta),
		TransactionType: txType,
		Description:     description,
		CreatedAt:       s.now(),
	})
}

// Balance returns the user's wallet, or an unsaved empty wallet when the user
// has never been credited.
func (s *WalletService) Balance(ctx context.Context, userID string) (*models.Wallet, error) {
	w, err := s.st.Wallets().GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Wallet{UserID: userID, IsActive: true}, nil
	}
	return w, err
}

func (s *WalletService) Transactions(ctx context.Context, userID string, page, limit int) ([]models.WalletTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.st.Wallets().ListTransactions(ctx, userID, page, limit)
}

// WalletDrift compares a wallet's cached totals with its ledger.
type WalletDrift struct {
	Wallet       *models.Wallet
	LedgerEarned decimal.Decimal
	LedgerSpent  decimal.Decimal
}

func (d *WalletDrift) Drifted() bool {
	return !d.Wallet.TotalEarned.Equal(d.LedgerEarned) ||
		!d.Wallet.TotalSpent.Equal(d.LedgerSpent) ||
		!d.Wallet.Consistent()
}

func (s *WalletService) Drift(ctx context.Context, w *models.Wallet) (*WalletDrift, error) {
	earned, spent, err := s.st.Wallets().LedgerTotals(ctx, w.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "ledger totals")
	}
	return &WalletDrift{Wallet: w, LedgerEarned: earned, LedgerSpent: spent}, nil
}

// Rebuild overwrites the cached totals of a wallet with its ledger sums.
func (s *WalletService) Rebuild(ctx context.Context, userID string) (*WalletDrift, error) {
	w, err := s.st.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load wallet")
	}
	d, err := s.Drift(ctx, w)
	if err != nil {
		return nil, err
	}
	if !d.Drifted() {
		return d, nil
	}
	before := *w
	w.TotalEarned = d.LedgerEarned
	w.TotalSpent = d.LedgerSpent
	w.Balance = d.LedgerEarned.Sub(d.LedgerSpent)
	if err := s.save(ctx, w); err != nil {
		return nil, err
	}
	d.Wallet = &before
	return d, nil
}
