package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"
	"basmah/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var admin = Actor{ID: "admin-1", Name: "Rana Admin", Type: domain.ActorTypeAdmin}

type recordingFeed struct {
	mu      sync.Mutex
	entries []models.AdminActionLog
}

func (f *recordingFeed) Publish(e *models.AdminActionLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
}

func (f *recordingFeed) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type stubRenderer struct {
	calls int
}

func (r *stubRenderer) Render(ctx context.Context, b *models.Booking, owner *models.Profile) ([]byte, error) {
	r.calls++
	return []byte("%PDF-1.4 " + b.BookingNumber), nil
}

type testEnv struct {
	mem     *memstore.Store
	store   repository.TxStore
	clock   *time.Time
	tickets *TicketService
	wallets *WalletService
	users   *UserAdminService
	actions *AdminActionService
	feed    *recordingFeed
	pdf     *stubRenderer
	seq     int
}

type envOption func(*envConfig)

type envConfig struct {
	wallet WalletPolicy
	ticket TicketPolicy
	wrap   func(*memstore.Store) repository.TxStore
}

func withWalletPolicy(p WalletPolicy) envOption { return func(c *envConfig) { c.wallet = p } }
func withTicketPolicy(p TicketPolicy) envOption { return func(c *envConfig) { c.ticket = p } }
func withStore(wrap func(*memstore.Store) repository.TxStore) envOption {
	return func(c *envConfig) { c.wrap = wrap }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{ticket: TicketPolicy{AllowBackdatedExpiry: true}}
	for _, o := range opts {
		o(&cfg)
	}
	mem := memstore.New()
	var store repository.TxStore = mem
	if cfg.wrap != nil {
		store = cfg.wrap(mem)
	}
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	env := &testEnv{mem: mem, store: store, clock: &clock, feed: &recordingFeed{}, pdf: &stubRenderer{}}
	now := func() time.Time { return *env.clock }

	env.wallets = NewWalletService(store, cfg.wallet)
	env.wallets.now = now
	env.tickets = NewTicketService(store, env.wallets, cfg.ticket)
	env.tickets.now = now
	env.users = NewUserAdminService(store)
	env.users.passwordCost = bcrypt.MinCost
	env.actions = NewAdminActionService(store, env.tickets, env.wallets, env.users, nil, env.feed, env.pdf)
	env.actions.now = now
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func (e *testEnv) user(email, phone string) models.Profile {
	return e.mem.SeedProfile(models.Profile{Email: email, Phone: phone, FullName: email})
}

func (e *testEnv) booking(owner string, total string) models.Booking {
	amount := decimal.RequireFromString(total)
	e.seq++
	return e.mem.SeedBooking(models.Booking{
		BookingNumber: fmt.Sprintf("BJ-%05d", e.seq),
		UserID:        owner,
		Quantity:      1,
		UnitPrice:     amount,
		Subtotal:      amount,
		TotalAmount:   amount,
		BookingDate:   *e.clock,
	})
}

func (e *testEnv) reload(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := e.mem.Bookings().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload booking %s: %v", id, err)
	}
	return b
}

func (e *testEnv) auditActions() []string {
	logs := e.mem.AllAuditLogs()
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}

// failingStore wraps the in-memory store and fails selected wallet writes.
type failingStore struct {
	*memstore.Store
	appendErr error
	updateErr error
}

func (f *failingStore) Wallets() repository.WalletStore {
	return failingWallets{WalletStore: f.Store.Wallets(), appendErr: f.appendErr, updateErr: f.updateErr}
}

func (f *failingStore) Transaction(ctx context.Context, fn func(tx repository.Stores) error) error {
	return f.Store.Transaction(ctx, func(tx repository.Stores) error {
		return fn(failingTx{Stores: tx, appendErr: f.appendErr, updateErr: f.updateErr})
	})
}

type failingTx struct {
	repository.Stores
	appendErr error
	updateErr error
}

func (f failingTx) Wallets() repository.WalletStore {
	return failingWallets{WalletStore: f.Stores.Wallets(), appendErr: f.appendErr, updateErr: f.updateErr}
}

type failingWallets struct {
	repository.WalletStore
	appendErr error
	updateErr error
}

func (w failingWallets) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	if w.appendErr != nil {
		return w.appendErr
	}
	return w.WalletStore.AppendTransaction(ctx, t)
}

func (w failingWallets) Update(ctx context.Context, wl *models.Wallet) error {
	if w.updateErr != nil {
		return w.updateErr
	}
	return w.WalletStore.Update(ctx, wl)
}
