package service

import (
	"context"
	"math/rand"
	"testing"

	"basmah/internal/domain"
	"basmah/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreditCreatesWalletLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	e, err := env.wallets.Credit(ctx, "u1", dec("10.50"), domain.WalletTxAdd, "top up", "")
	require.NoError(t, err)
	assert.True(t, e.Wallet.Balance.Equal(dec("10.50")))
	assert.True(t, e.Wallet.TotalEarned.Equal(dec("10.50")))
	assert.True(t, e.Wallet.TotalSpent.IsZero())
	assert.True(t, e.Transaction.Amount.Equal(dec("10.50")))

	e, err = env.wallets.Credit(ctx, "u1", dec("4.50"), domain.WalletTxRefund, "refund", "b1")
	require.NoError(t, err)
	assert.True(t, e.Wallet.Balance.Equal(dec("15")))
	assert.Equal(t, "b1", e.Transaction.Reference)
	assert.Len(t, env.mem.AllTransactions(), 2)
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	env := newTestEnv(t)
	for _, amount := range []string{"0", "-5", "0.001"} {
		_, err := env.wallets.Credit(context.Background(), "u1", dec(amount), domain.WalletTxAdd, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
	assert.Empty(t, env.mem.AllTransactions())
}

func TestCreditRejectsNonCreditType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.wallets.Credit(context.Background(), "u1", dec("1"), domain.WalletTxDeduct, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDebitRequiresFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.wallets.Debit(ctx, "u1", dec("1"), "", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = env.wallets.Credit(ctx, "u1", dec("5"), domain.WalletTxAdd, "", "")
	require.NoError(t, err)
	_, err = env.wallets.Debit(ctx, "u1", dec("5.01"), "", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	e, err := env.wallets.Debit(ctx, "u1", dec("5"), "", "")
	require.NoError(t, err)
	assert.True(t, e.Wallet.Balance.IsZero())
	assert.True(t, e.Transaction.Amount.Equal(dec("-5")))
	assert.Equal(t, domain.WalletTxDeduct, e.Transaction.TransactionType)
}

func TestDebitAllowNegativePolicy(t *testing.T) {
	env := newTestEnv(t, withWalletPolicy(WalletPolicy{AllowNegative: true}))
	e, err := env.wallets.Debit(context.Background(), "u1", dec("7"), "", "")
	require.NoError(t, err)
	assert.True(t, e.Wallet.Balance.Equal(dec("-7")))
	assert.True(t, e.Wallet.TotalSpent.Equal(dec("7")))
	assert.True(t, e.Wallet.Consistent())
}

func TestLedgerInvariantHoldsAcrossRandomSequence(t *testing.T) {
	env := newTestEnv(t, withWalletPolicy(WalletPolicy{AllowNegative: true}))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		amount := decimal.New(int64(rng.Intn(10000)+1), -2)
		var err error
		if rng.Intn(2) == 0 {
			_, err = env.wallets.Credit(ctx, "u1", amount, domain.WalletTxAdd, "", "")
		} else {
			_, err = env.wallets.Debit(ctx, "u1", amount, "", "")
		}
		require.NoError(t, err)

		w, err := env.wallets.Balance(ctx, "u1")
		require.NoError(t, err)
		require.True(t, w.Balance.Equal(w.TotalEarned.Sub(w.TotalSpent)), "step %d", i)

		d, err := env.wallets.Drift(ctx, w)
		require.NoError(t, err)
		require.False(t, d.Drifted(), "step %d", i)
	}
}

func TestCreditOnInconsistentWalletFailsInvariant(t *testing.T) {
	env := newTestEnv(t)
	env.mem.SeedWallet(models.Wallet{UserID: "u1", Balance: dec("10"), TotalEarned: dec("3"), IsActive: true})

	_, err := env.wallets.Credit(context.Background(), "u1", dec("1"), domain.WalletTxAdd, "", "")
	assert.ErrorIs(t, err, ErrLedgerInvariant)
}

func TestAdjustPointsHasNoFloor(t *testing.T) {
	env := newTestEnv(t)
	u := env.user("p@example.com", "")
	ctx := context.Background()

	_, err := env.wallets.AdjustPoints(ctx, u.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	p, err := env.wallets.AdjustPoints(ctx, u.ID, -30)
	require.NoError(t, err)
	assert.Equal(t, int64(-30), p)

	_, err = env.wallets.AdjustPoints(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPointsTransactionsDoNotMoveBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.wallets.Credit(ctx, "u1", dec("2"), domain.WalletTxAdd, "", "")
	require.NoError(t, err)
	require.NoError(t, env.wallets.RecordPointsTransaction(ctx, "u1", 500, "bonus"))
	require.NoError(t, env.wallets.RecordPointsTransaction(ctx, "u1", -20, "redeem"))

	w, err := env.wallets.Balance(ctx, "u1")
	require.NoError(t, err)
	d, err := env.wallets.Drift(ctx, w)
	require.NoError(t, err)
	assert.False(t, d.Drifted())

	txs, total, err := env.wallets.Transactions(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, domain.WalletTxPointsDeduct, txs[0].TransactionType)
}

func TestRebuildRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.wallets.Credit(ctx, "u1", dec("20"), domain.WalletTxAdd, "", "")
	require.NoError(t, err)

	w, err := env.mem.Wallets().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	w.Balance = dec("50")
	w.TotalEarned = dec("50")
	require.NoError(t, env.mem.Wallets().Update(ctx, w))

	d, err := env.wallets.Rebuild(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Wallet.Balance.Equal(dec("50")))

	w, err = env.mem.Wallets().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("20")))
	assert.True(t, w.TotalEarned.Equal(dec("20")))
}
