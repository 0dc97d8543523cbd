// Package memstore is an in-process implementation of repository.TxStore.
// It backs DB_DRIVER=memory for local runs and the service/handler tests.
// Transactions are serialized against each other. A rollback replays an undo
// journal of the writes made through the transaction's own stores, so writes
// made outside the transaction survive it. There are no row locks: an outside
// write to a row the transaction also wrote is overwritten by the rollback.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type state struct {
	bookings map[string]models.Booking
	profiles map[string]models.Profile
	wallets  map[string]models.Wallet // keyed by user id
	txs      []models.WalletTransaction
	audit    []models.AdminActionLog
	outbox   []models.OutboxEvent
	seq      uint
}

// journal holds the inverse of every write made inside one transaction.
type journal struct {
	undo []func(st *state)
}

func (j *journal) record(fn func(st *state)) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) rollback(st *state) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i](st)
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	now  func() time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			bookings: map[string]models.Booking{},
			profiles: map[string]models.Profile{},
			wallets:  map[string]models.Wallet{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Bookings() repository.BookingStore   { return bookings{s: s} }
func (s *Store) Profiles() repository.ProfileStore   { return profiles{s: s} }
func (s *Store) Wallets() repository.WalletStore     { return wallets{s: s} }
func (s *Store) AuditLogs() repository.AuditLogStore { return audit{s: s} }
func (s *Store) Outbox() repository.OutboxStore      { return outbox{s: s} }

// txStores is the view handed to a transaction callback.
type txStores struct {
	s *Store
	j *journal
}

func (t txStores) Bookings() repository.BookingStore   { return bookings{t.s, t.j} }
func (t txStores) Profiles() repository.ProfileStore   { return profiles{t.s, t.j} }
func (t txStores) Wallets() repository.WalletStore     { return wallets{t.s, t.j} }
func (t txStores) AuditLogs() repository.AuditLogStore { return audit{t.s, t.j} }
func (t txStores) Outbox() repository.OutboxStore      { return outbox{t.s, t.j} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	j := &journal{}
	if err := fn(txStores{s: s, j: j}); err != nil {
		s.mu.Lock()
		j.rollback(s.st)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) nextID() uint {
	s.st.seq++
	return s.st.seq
}

// SeedBooking inserts a booking as the purchase flow would.
func (s *Store) SeedBooking(b models.Booking) models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.TicketStatus == "" {
		b.TicketStatus = domain.TicketActive
	}
	b.SyncStatus()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
		b.UpdatedAt = b.CreatedAt
	}
	s.st.bookings[b.ID] = b
	return b
}

// SeedProfile inserts an account directly.
func (s *Store) SeedProfile(p models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.AccountStatus == "" {
		p.AccountStatus = domain.AccountActive
	}
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	s.st.profiles[p.ID] = p
	return p
}

// SeedWallet inserts a wallet row without a matching ledger, as legacy data may have.
func (s *Store) SeedWallet(w models.Wallet) models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.nextID()
	s.st.wallets[w.UserID] = w
	return w
}

// AllAuditLogs returns every audit entry in insertion order.
func (s *Store) AllAuditLogs() []models.AdminActionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AdminActionLog(nil), s.st.audit...)
}

// AllTransactions returns every ledger row in insertion order.
func (s *Store) AllTransactions() []models.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WalletTransaction(nil), s.st.txs...)
}

// AllOutbox returns every outbox event in insertion order.
func (s *Store) AllOutbox() []models.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OutboxEvent(nil), s.st.outbox...)
}

type bookings struct {
	s *Store
	j *journal
}

func (r bookings) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r bookings) Update(ctx context.Context, b *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.bookings[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != b.Version {
		return repository.ErrConflict
	}
	b.SyncStatus()
	b.Version++
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = r.s.now()
	}
	// identity and commercial columns are not writable through Update
	next := *b
	next.BookingNumber = cur.BookingNumber
	next.TotalAmount = cur.TotalAmount
	next.CreatedAt = cur.CreatedAt
	r.s.st.bookings[b.ID] = next
	r.j.record(func(st *state) { st.bookings[cur.ID] = cur })
	return nil
}

func (r bookings) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.s.st.bookings, id)
	r.j.record(func(st *state) { st.bookings[id] = cur })
	return nil
}

func (r bookings) ListRefunded(ctx context.Context, afterID string, limit int) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.st.bookings {
		if b.TicketStatus == domain.TicketCancelled && b.RefundedAmount.IsPositive() && b.ID > afterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type profiles struct {
	s *Store
	j *journal
}

func (r profiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r profiles) find(match func(p models.Profile) bool) []models.Profile {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Profile
	for _, p := range r.s.st.profiles {
		if !p.DeletedAt.Valid && match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r profiles) FindByEmail(ctx context.Context, email string) ([]models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(p models.Profile) bool { return strings.ToLower(p.Email) == email }), nil
}

func (r profiles) FindByPhone(ctx context.Context, phone string) ([]models.Profile, error) {
	phone = strings.TrimSpace(phone)
	return r.find(func(p models.Profile) bool { return phone != "" && p.Phone == phone }), nil
}

func (r profiles) Create(ctx context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.profiles {
		if !existing.DeletedAt.Valid && strings.EqualFold(existing.Email, p.Email) {
			return repository.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.st.profiles[p.ID] = *p
	id := p.ID
	r.j.record(func(st *state) { delete(st.profiles, id) })
	return nil
}

func (r profiles) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	prev := p
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "email":
			p.Email = s
		case "phone":
			p.Phone = s
		case "full_name":
			p.FullName = s
		case "role":
			p.Role = s
		case "account_status":
			p.AccountStatus = s
		case "password_hash":
			p.PasswordHash = s
		}
	}
	p.UpdatedAt = r.s.now()
	r.s.st.profiles[id] = p
	r.j.record(func(st *state) { st.profiles[id] = prev })
	return nil
}

func (r profiles) AddPoints(ctx context.Context, id string, delta int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt.Valid {
		return 0, repository.ErrNotFound
	}
	prev := p
	p.Points += delta
	r.s.st.profiles[id] = p
	r.j.record(func(st *state) { st.profiles[id] = prev })
	return p.Points, nil
}

func (r profiles) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	prev := p
	p.DeletedAt.Time = r.s.now()
	p.DeletedAt.Valid = true
	r.s.st.profiles[id] = p
	r.j.record(func(st *state) { st.profiles[id] = prev })
	return nil
}

type wallets struct {
	s *Store
	j *journal
}

func (r wallets) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.st.wallets[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r wallets) Create(ctx context.Context, w *models.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.wallets[w.UserID]; ok {
		return repository.ErrConflict
	}
	w.ID = r.s.nextID()
	w.CreatedAt = r.s.now()
	w.UpdatedAt = w.CreatedAt
	r.s.st.wallets[w.UserID] = *w
	userID := w.UserID
	r.j.record(func(st *state) { delete(st.wallets, userID) })
	return nil
}

func (r wallets) Update(ctx context.Context, w *models.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.wallets[w.UserID]
	if !ok || cur.ID != w.ID || cur.Version != w.Version {
		return repository.ErrConflict
	}
	w.Version++
	w.UpdatedAt = r.s.now()
	r.s.st.wallets[w.UserID] = *w
	r.j.record(func(st *state) { st.wallets[cur.UserID] = cur })
	return nil
}

func (r wallets) ListAfter(ctx context.Context, afterID uint, limit int) ([]models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Wallet
	for _, w := range r.s.st.wallets {
		if w.ID > afterID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r wallets) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.s.now()
	}
	r.s.st.txs = append(r.s.st.txs, *t)
	id := t.ID
	r.j.record(func(st *state) {
		st.txs = without(st.txs, func(x models.WalletTransaction) bool { return x.ID == id })
	})
	return nil
}

func (r wallets) ListTransactions(ctx context.Context, userID string, page, limit int) ([]models.WalletTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.WalletTransaction
	for i := len(r.s.st.txs) - 1; i >= 0; i-- {
		if r.s.st.txs[i].UserID == userID {
			all = append(all, r.s.st.txs[i])
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.WalletTransaction{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r wallets) LedgerTotals(ctx context.Context, userID string) (decimal.Decimal, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	earned, spent := decimal.Zero, decimal.Zero
	for _, t := range r.s.st.txs {
		if t.UserID != userID || !isMoneyTx(t.TransactionType) {
			continue
		}
		if t.Amount.IsPositive() {
			earned = earned.Add(t.Amount)
		} else {
			spent = spent.Add(t.Amount.Neg())
		}
	}
	return earned, spent, nil
}

func (r wallets) HasRefund(ctx context.Context, userID, bookingID, description string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.st.txs {
		if t.UserID != userID || t.TransactionType != domain.WalletTxRefund {
			continue
		}
		if t.Reference == bookingID || (t.Reference == "" && t.Description == description) {
			return true, nil
		}
	}
	return false, nil
}

func without[T any](xs []T, drop func(T) bool) []T {
	out := xs[:0]
	for _, x := range xs {
		if !drop(x) {
			out = append(out, x)
		}
	}
	return out
}

func isMoneyTx(t string) bool {
	for _, m := range domain.MoneyTxTypes {
		if m == t {
			return true
		}
	}
	return false
}

type audit struct {
	s *Store
	j *journal
}

func (r audit) Append(ctx context.Context, e *models.AdminActionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.nextID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	r.s.st.audit = append(r.s.st.audit, *e)
	id := e.ID
	r.j.record(func(st *state) {
		st.audit = without(st.audit, func(x models.AdminActionLog) bool { return x.ID == id })
	})
	return nil
}

func (r audit) list(match func(e models.AdminActionLog) bool, limit int) []models.AdminActionLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AdminActionLog
	for i := len(r.s.st.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if match(r.s.st.audit[i]) {
			out = append(out, r.s.st.audit[i])
		}
	}
	return out
}

func (r audit) ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.AdminActionLog, error) {
	return r.list(func(e models.AdminActionLog) bool { return e.BookingID != nil && *e.BookingID == bookingID }, limit), nil
}

func (r audit) ListByUser(ctx context.Context, userID string, limit int) ([]models.AdminActionLog, error) {
	return r.list(func(e models.AdminActionLog) bool { return e.TargetUserID != nil && *e.TargetUserID == userID }, limit), nil
}

type outbox struct {
	s *Store
	j *journal
}

func (r outbox) Append(ctx context.Context, e *models.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.nextID()
	e.CreatedAt = r.s.now()
	r.s.st.outbox = append(r.s.st.outbox, *e)
	id := e.ID
	r.j.record(func(st *state) {
		st.outbox = without(st.outbox, func(x models.OutboxEvent) bool { return x.ID == id })
	})
	return nil
}

func (r outbox) ListPending(ctx context.Context, maxAttempts, limit int) ([]models.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OutboxEvent
	for _, e := range r.s.st.outbox {
		if len(out) >= limit {
			break
		}
		if e.PublishedAt == nil && e.Attempts < maxAttempts {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r outbox) update(id uint, fn func(e *models.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.st.outbox {
		if r.s.st.outbox[i].ID == id {
			prev := r.s.st.outbox[i]
			fn(&r.s.st.outbox[i])
			r.j.record(func(st *state) {
				for k := range st.outbox {
					if st.outbox[k].ID == id {
						st.outbox[k] = prev
					}
				}
			})
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r outbox) MarkPublished(ctx context.Context, id uint) error {
	now := r.s.now()
	return r.update(id, func(e *models.OutboxEvent) { e.PublishedAt = &now })
}

func (r outbox) MarkFailed(ctx context.Context, id uint, cause string) error {
	return r.update(id, func(e *models.OutboxEvent) {
		e.Attempts++
		e.LastError = cause
	})
}
