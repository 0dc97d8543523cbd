package service

import (
	"context"
	"sync"
	"time"

	"basmah/internal/metrics"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const reconcileBatch = 200

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	BookingsScanned int       `json:"bookings_scanned"`
	RefundsRepaired int       `json:"refunds_repaired"`
	WalletsScanned  int       `json:"wallets_scanned"`
	WalletsDrifted  int       `json:"wallets_drifted"`
	WalletsRepaired int       `json:"wallets_repaired"`
	Errors          []string  `json:"errors,omitempty"`
}

// ReconciliationService finds partially applied states and repairs them
// through the admin facade so every repair is audited.
type ReconciliationService struct {
	st            repository.Stores
	actions       *AdminActionService
	wallets       *WalletService
	repairWallets bool
	onFinish      func(*ReconcileReport)
	mu            sync.Mutex
}

func NewReconciliationService(st repository.Stores, actions *AdminActionService, wallets *WalletService, repairWallets bool) *ReconciliationService {
	return &ReconciliationService{st: st, actions: actions, wallets: wallets, repairWallets: repairWallets}
}

// OnFinish registers fn to receive the report of every completed pass.
func (s *ReconciliationService) OnFinish(fn func(*ReconcileReport)) {
	s.onFinish = fn
}

// Run performs one pass. Concurrent calls fail with ErrReconcileRunning.
func (s *ReconciliationService) Run(ctx context.Context) (*ReconcileReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrReconcileRunning
	}
	defer s.mu.Unlock()

	rep := &ReconcileReport{StartedAt: time.Now().UTC()}
	if err := s.refunds(ctx, rep); err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return rep, err
	}
	if err := s.walletTotals(ctx, rep); err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return rep, err
	}
	rep.FinishedAt = time.Now().UTC()
	metrics.WalletDrift.Set(float64(rep.WalletsDrifted - rep.WalletsRepaired))
	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	log.Info().
		Int("bookings_scanned", rep.BookingsScanned).
		Int("refunds_repaired", rep.RefundsRepaired).
		Int("wallets_scanned", rep.WalletsScanned).
		Int("wallets_drifted", rep.WalletsDrifted).
		Int("wallets_repaired", rep.WalletsRepaired).
		Int("errors", len(rep.Errors)).
		Msg("reconciliation finished")
	if s.onFinish != nil {
		s.onFinish(rep)
	}
	return rep, nil
}

func (s *ReconciliationService) refunds(ctx context.Context, rep *ReconcileReport) error {
	after := ""
	for {
		page, err := s.st.Bookings().ListRefunded(ctx, after, reconcileBatch)
		if err != nil {
			return errors.Wrap(err, "list refunded bookings")
		}
		for i := range page {
			b := &page[i]
			after = b.ID
			rep.BookingsScanned++
			done, err := s.st.Wallets().HasRefund(ctx, b.UserID, b.ID, RefundDescription(b))
			if err != nil {
				return errors.Wrap(err, "check refund ledger")
			}
			if done {
				continue
			}
			c, err := s.actions.RepairRefund(ctx, b.ID)
			if err != nil {
				rep.Errors = append(rep.Errors, "booking "+b.BookingNumber+": "+err.Error())
				continue
			}
			if c != nil {
				rep.RefundsRepaired++
				metrics.RefundsRepaired.Inc()
			}
		}
		if len(page) < reconcileBatch {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *ReconciliationService) walletTotals(ctx context.Context, rep *ReconcileReport) error {
	var after uint
	for {
		page, err := s.st.Wallets().ListAfter(ctx, after, reconcileBatch)
		if err != nil {
			return errors.Wrap(err, "list wallets")
		}
		for i := range page {
			w := &page[i]
			after = w.ID
			rep.WalletsScanned++
			d, err := s.wallets.Drift(ctx, w)
			if err != nil {
				return err
			}
			if !d.Drifted() {
				continue
			}
			rep.WalletsDrifted++
			log.Warn().
				Str("user_id", w.UserID).
				Str("balance", w.Balance.StringFixed(2)).
				Str("ledger_earned", d.LedgerEarned.StringFixed(2)).
				Str("ledger_spent", d.LedgerSpent.StringFixed(2)).
				Msg("wallet totals disagree with ledger")
			if !s.repairWallets {
				continue
			}
			fixed, err := s.actions.RepairWallet(ctx, w.UserID)
			if err != nil {
				rep.Errors = append(rep.Errors, "wallet "+w.UserID+": "+err.Error())
				continue
			}
			if fixed != nil {
				rep.WalletsRepaired++
			}
		}
		if len(page) < reconcileBatch {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
