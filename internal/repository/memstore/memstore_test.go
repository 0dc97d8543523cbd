package memstore

import (
	"context"
	"testing"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := s.SeedBooking(models.Booking{BookingNumber: "BJ-1", UserID: "u1", TotalAmount: decimal.NewFromInt(10)})
	u := s.SeedProfile(models.Profile{Email: "u@example.com"})
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx repository.Stores) error {
		got, err := tx.Bookings().GetByID(ctx, b.ID)
		require.NoError(t, err)
		got.TicketStatus = domain.TicketCancelled
		require.NoError(t, tx.Bookings().Update(ctx, got))
		_, err = tx.Profiles().AddPoints(ctx, u.ID, 50)
		require.NoError(t, err)
		require.NoError(t, tx.AuditLogs().Append(ctx, &models.AdminActionLog{Action: domain.ActionTicketCancelRefund}))
		require.NoError(t, tx.Wallets().Create(ctx, &models.Wallet{UserID: u.ID}))

		// a relay or another request writing while the transaction is open
		require.NoError(t, s.Outbox().Append(ctx, &models.OutboxEvent{EventType: "other", AggregateID: "x"}))
		require.NoError(t, s.Wallets().AppendTransaction(ctx, &models.WalletTransaction{UserID: "u2", Amount: decimal.NewFromInt(3)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketActive, got.TicketStatus)
	assert.Equal(t, b.Version, got.Version)
	p, err := s.Profiles().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Points)
	assert.Empty(t, s.AllAuditLogs())
	_, err = s.Wallets().GetByUserID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.Len(t, s.AllOutbox(), 1)
	assert.Equal(t, "other", s.AllOutbox()[0].EventType)
	require.Len(t, s.AllTransactions(), 1)
	assert.Equal(t, "u2", s.AllTransactions()[0].UserID)
}

func TestRollbackUndoesDeletesAndOutboxUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := s.SeedBooking(models.Booking{BookingNumber: "BJ-2", UserID: "u1"})
	u := s.SeedProfile(models.Profile{Email: "gone@example.com"})
	require.NoError(t, s.Outbox().Append(ctx, &models.OutboxEvent{EventType: "ticket.cancelled", AggregateID: b.ID}))
	ev := s.AllOutbox()[0]

	err := s.Transaction(ctx, func(tx repository.Stores) error {
		require.NoError(t, tx.Bookings().Delete(ctx, b.ID))
		require.NoError(t, tx.Profiles().Delete(ctx, u.ID))
		require.NoError(t, tx.Outbox().MarkFailed(ctx, ev.ID, "broker down"))
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = s.Bookings().GetByID(ctx, b.ID)
	assert.NoError(t, err)
	_, err = s.Profiles().GetByID(ctx, u.ID)
	assert.NoError(t, err)
	after := s.AllOutbox()[0]
	assert.Zero(t, after.Attempts)
	assert.Empty(t, after.LastError)
}

func TestCommittedTransactionIsVisible(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := s.SeedProfile(models.Profile{Email: "u@example.com"})

	err := s.Transaction(ctx, func(tx repository.Stores) error {
		_, err := tx.Profiles().AddPoints(ctx, u.ID, 7)
		return err
	})
	require.NoError(t, err)

	p, err := s.Profiles().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Points)
}

func TestBookingUpdateRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := s.SeedBooking(models.Booking{BookingNumber: "BJ-3", UserID: "u1"})

	first, err := s.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)
	second, err := s.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)

	first.TicketStatus = domain.TicketUsed
	require.NoError(t, s.Bookings().Update(ctx, first))
	second.TicketStatus = domain.TicketCancelled
	assert.ErrorIs(t, s.Bookings().Update(ctx, second), repository.ErrConflict)
}
