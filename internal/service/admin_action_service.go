package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"basmah/internal/domain"
	"basmah/internal/lock"
	"basmah/internal/metrics"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Actor is whoever issues an admin action.
type Actor struct {
	ID   string
	Name string
	Type string // admin or system
}

// SystemActor attributes repairs made by background jobs.
var SystemActor = Actor{ID: "system", Name: "reconciler", Type: domain.ActorTypeSystem}

func (a Actor) validate() (Actor, error) {
	if a.ID == "" {
		return a, errors.Wrap(ErrInvalidInput, "actor id is required")
	}
	if a.Type == "" {
		a.Type = domain.ActorTypeAdmin
	}
	if a.Type != domain.ActorTypeAdmin && a.Type != domain.ActorTypeSystem {
		return a, errors.Wrapf(ErrInvalidInput, "actor type %q", a.Type)
	}
	return a, nil
}

// Broadcaster receives every committed audit entry.
type Broadcaster interface {
	Publish(entry *models.AdminActionLog)
}

// TicketRenderer renders a printable ticket.
type TicketRenderer interface {
	Render(ctx context.Context, b *models.Booking, owner *models.Profile) ([]byte, error)
}

// errNoop rolls back a transaction that found nothing to do.
var errNoop = errors.New("nothing to do")

// AdminActionService is the entry point for every administrative mutation.
// Each call runs in one database transaction and commits exactly one audit
// row alongside the domain writes and their outbox events. Rejected calls
// leave no trace.
type AdminActionService struct {
	store   repository.TxStore
	tickets *TicketService
	wallets *WalletService
	users   *UserAdminService
	locker  lock.Locker
	feed    Broadcaster
	pdf     TicketRenderer
	tracer  trace.Tracer
	now     func() time.Time
}

func NewAdminActionService(
	store repository.TxStore,
	tickets *TicketService,
	wallets *WalletService,
	users *UserAdminService,
	locker lock.Locker,
	feed Broadcaster,
	pdf TicketRenderer,
) *AdminActionService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &AdminActionService{
		store:   store,
		tickets: tickets,
		wallets: wallets,
		users:   users,
		locker:  locker,
		feed:    feed,
		pdf:     pdf,
		tracer:  otel.Tracer("basmah/admin"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// txScope exposes the domain services bound to the running transaction and
// collects the audit entry, outbox events and post-commit hooks.
type txScope struct {
	st      repository.Stores
	tickets *TicketService
	wallets *WalletService
	users   *UserAdminService
	actor   Actor
	now     time.Time
	entry   *models.AdminActionLog
	after   []func(context.Context)
}

type auditTarget struct {
	userID    string
	bookingID string
}

func bookingTarget(b *models.Booking) auditTarget {
	return auditTarget{userID: b.UserID, bookingID: b.ID}
}

func (t *txScope) audit(ctx context.Context, action string, target auditTarget, note string, meta map[string]interface{}) error {
	if t.entry != nil {
		return errors.Errorf("audit entry %s already recorded", t.entry.Action)
	}
	e := &models.AdminActionLog{
		ActorID:   t.actor.ID,
		ActorName: t.actor.Name,
		ActorType: t.actor.Type,
		Action:    action,
		Note:      note,
		CreatedAt: t.now,
	}
	if target.userID != "" {
		id := target.userID
		e.TargetUserID = &id
	}
	if target.bookingID != "" {
		id := target.bookingID
		e.BookingID = &id
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return errors.Wrap(err, "marshal audit metadata")
		}
		e.Metadata = raw
	}
	if err := t.st.AuditLogs().Append(ctx, e); err != nil {
		return errors.Wrap(err, "append audit log")
	}
	t.entry = e
	return nil
}

func (t *txScope) emit(ctx context.Context, eventType, aggregateID string, data map[string]interface{}) error {
	body := map[string]interface{}{
		"event_type":   eventType,
		"aggregate_id": aggregateID,
		"actor_id":     t.actor.ID,
		"occurred_at":  t.now,
		"data":         data,
	}
	if t.entry != nil {
		body["action"] = t.entry.Action
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal outbox payload")
	}
	return errors.Wrap(t.st.Outbox().Append(ctx, &models.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     raw,
	}), "append outbox event")
}

func (t *txScope) afterCommit(fn func(context.Context)) {
	t.after = append(t.after, fn)
}

type runOpts struct {
	op      string
	lockKey string
}

func (s *AdminActionService) run(ctx context.Context, actor Actor, o runOpts, fn func(ctx context.Context, tx *txScope) error) (*models.AdminActionLog, error) {
	actor, err := actor.validate()
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "admin."+o.op, trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.type", actor.Type),
	))
	defer span.End()
	start := time.Now()

	if o.lockKey != "" {
		span.SetAttributes(attribute.String("lock.key", o.lockKey))
		release, err := s.locker.Acquire(ctx, o.lockKey)
		switch {
		case errors.Is(err, lock.ErrLocked):
			return nil, s.fail(span, o.op, errors.Wrap(ErrConflict, err.Error()))
		case err != nil && ctx.Err() != nil:
			return nil, s.fail(span, o.op, ctx.Err())
		case err != nil:
			// the version column still guards every write
			log.Warn().Err(err).Str("key", o.lockKey).Msg("advisory lock unavailable, continuing without it")
		default:
			defer release()
		}
	}

	var scope *txScope
	err = s.store.Transaction(ctx, func(st repository.Stores) error {
		scope = &txScope{
			st:      st,
			tickets: s.tickets.WithStores(st),
			wallets: s.wallets.WithStores(st),
			users:   s.users.WithStores(st),
			actor:   actor,
			now:     s.now(),
		}
		if err := fn(ctx, scope); err != nil {
			return err
		}
		if scope.entry == nil {
			return errors.Errorf("%s committed without an audit entry", o.op)
		}
		return nil
	})
	metrics.AdminActionDuration.WithLabelValues(o.op).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, errNoop) {
			return nil, err
		}
		return nil, s.fail(span, o.op, err)
	}

	entry := scope.entry
	metrics.AdminActions.WithLabelValues(o.op, "ok").Inc()
	span.SetAttributes(attribute.String("audit.action", entry.Action))
	log.Info().
		Str("action", entry.Action).
		Str("actor", actor.ID).
		Str("booking_id", deref(entry.BookingID)).
		Str("target_user_id", deref(entry.TargetUserID)).
		Msg("admin action committed")

	if s.feed != nil {
		s.feed.Publish(entry)
	}
	post := context.WithoutCancel(ctx)
	for _, hook := range scope.after {
		hook(post)
	}
	return entry, nil
}

func (s *AdminActionService) fail(span trace.Span, op string, err error) error {
	outcome := "error"
	if Rejected(err) {
		outcome = "rejected"
	}
	metrics.AdminActions.WithLabelValues(op, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if outcome == "error" {
		log.Error().Err(err).Str("op", op).Msg("admin action failed")
	} else {
		log.Debug().Err(err).Str("op", op).Msg("admin action rejected")
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func bookingKey(id string) string { return "booking:" + id }

// describe joins a generated summary with the administrator's note.
func describe(summary, note string) string {
	if note == "" {
		return summary
	}
	return summary + ": " + note
}

func bookingData(b *models.Booking) map[string]interface{} {
	return map[string]interface{}{
		"booking_id":      b.ID,
		"booking_number":  b.BookingNumber,
		"user_id":         b.UserID,
		"ticket_status":   b.TicketStatus,
		"status":          b.Status,
		"refunded_amount": b.RefundedAmount.StringFixed(2),
		"version":         b.Version,
	}
}

func ledgerData(e *LedgerEntry) map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.Wallet.UserID,
		"amount":           e.Transaction.Amount.StringFixed(2),
		"transaction_type": e.Transaction.TransactionType,
		"reference":        e.Transaction.Reference,
		"balance":          e.Wallet.Balance.StringFixed(2),
	}
}

func originAction(origin domain.Origin, fromBookings, fromUsers string) (string, error) {
	switch origin {
	case "", domain.OriginBookings:
		return fromBookings, nil
	case domain.OriginUsers:
		return fromUsers, nil
	}
	return "", errors.Wrapf(ErrInvalidInput, "origin %q", origin)
}

// Ticket actions

func (s *AdminActionService) ChangeStatus(ctx context.Context, actor Actor, bookingID string, status domain.TicketStatus, note string) (*models.Booking, error) {
	var out *models.Booking
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionStatusChange, lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		ch, err := tx.tickets.ChangeStatus(ctx, bookingID, status, tx.actor.Name)
		if err != nil {
			return err
		}
		out = ch.Booking
		summary := fmt.Sprintf("%s → %s", ch.From, ch.To)
		meta := map[string]interface{}{"from": ch.From, "to": ch.To}
		if err := tx.audit(ctx, domain.ActionStatusChange, bookingTarget(ch.Booking), describe(summary, note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventBookingUpdated, ch.Booking.ID, bookingData(ch.Booking))
	})
	return out, err
}

func (s *AdminActionService) ExtendExpiry(ctx context.Context, actor Actor, bookingID string, expiry time.Time, note string) (*models.Booking, error) {
	var out *models.Booking
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionExtendExpiry, lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		ch, err := tx.tickets.ExtendExpiry(ctx, bookingID, expiry)
		if err != nil {
			return err
		}
		out = ch.Booking
		prev := "none"
		if ch.Previous != nil {
			prev = ch.Previous.Format(time.RFC3339)
		}
		next := ch.Booking.ExpiryDate.Format(time.RFC3339)
		meta := map[string]interface{}{"previous_expiry": prev, "expiry_date": next}
		if err := tx.audit(ctx, domain.ActionExtendExpiry, bookingTarget(ch.Booking), describe(prev+" → "+next, note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventBookingUpdated, ch.Booking.ID, bookingData(ch.Booking))
	})
	return out, err
}

// TransferTicket moves a ticket to another account. origin selects the audit
// vocabulary of the screen the request came from.
func (s *AdminActionService) TransferTicket(ctx context.Context, actor Actor, origin domain.Origin, bookingID string, to Recipient, note string) (*Transfer, error) {
	action, err := originAction(origin, domain.ActionTransferTicket, domain.ActionTicketTransfer)
	if err != nil {
		return nil, err
	}
	var out *Transfer
	_, err = s.run(ctx, actor, runOpts{op: action, lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		tr, err := tx.tickets.TransferOwnership(ctx, bookingID, to)
		if err != nil {
			return err
		}
		out = tr
		summary := fmt.Sprintf("%s → %s (%s)", tr.FromUserID, tr.To.ID, to)
		meta := map[string]interface{}{
			"from_user_id": tr.FromUserID,
			"to_user_id":   tr.To.ID,
			"resolved_by":  to.By,
			"recipient":    to.Value,
		}
		if err := tx.audit(ctx, action, bookingTarget(tr.Booking), describe(summary, note), meta); err != nil {
			return err
		}
		data := bookingData(tr.Booking)
		data["from_user_id"] = tr.FromUserID
		return tx.emit(ctx, domain.EventBookingTransferred, tr.Booking.ID, data)
	})
	return out, err
}

// CancelTicket cancels a ticket, crediting its total to the owner when refund is set.
func (s *AdminActionService) CancelTicket(ctx context.Context, actor Actor, origin domain.Origin, bookingID string, refund bool, note string) (*Cancellation, error) {
	var (
		action string
		err    error
	)
	if refund {
		action, err = originAction(origin, domain.ActionRefundToWallet, domain.ActionTicketCancelRefund)
	} else {
		action, err = originAction(origin, domain.ActionCancelWithoutRefund, domain.ActionTicketCancelNoRefnd)
	}
	if err != nil {
		return nil, err
	}
	var out *Cancellation
	_, err = s.run(ctx, actor, runOpts{op: action, lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		var c *Cancellation
		var err error
		if refund {
			c, err = tx.tickets.CancelWithRefund(ctx, bookingID, tx.actor.Name)
		} else {
			c, err = tx.tickets.CancelWithoutRefund(ctx, bookingID, tx.actor.Name)
		}
		if err != nil {
			return err
		}
		out = c
		summary := "cancelled without refund"
		if refund {
			summary = "cancelled, refunded " + c.Refunded.StringFixed(2)
		}
		meta := map[string]interface{}{
			"booking_number":  c.Booking.BookingNumber,
			"refunded_amount": c.Refunded.StringFixed(2),
		}
		if err := tx.audit(ctx, action, bookingTarget(c.Booking), describe(summary, note), meta); err != nil {
			return err
		}
		if err := tx.emit(ctx, domain.EventBookingCancelled, c.Booking.ID, bookingData(c.Booking)); err != nil {
			return err
		}
		if c.Ledger != nil {
			return tx.emit(ctx, domain.EventWalletCredited, c.Booking.UserID, ledgerData(c.Ledger))
		}
		return nil
	})
	return out, err
}

// DeleteTicket removes the booking row. The audit entry is written first and
// outlives the booking.
func (s *AdminActionService) DeleteTicket(ctx context.Context, actor Actor, bookingID, note string) (*models.Booking, error) {
	var out *models.Booking
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionDeleteTicket, lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		b, err := tx.tickets.DeletePermanently(ctx, bookingID, func(b *models.Booking) error {
			meta := map[string]interface{}{
				"booking_number": b.BookingNumber,
				"ticket_status":  b.TicketStatus,
				"total_amount":   b.TotalAmount.StringFixed(2),
			}
			return tx.audit(ctx, domain.ActionDeleteTicket, bookingTarget(b), describe("deleted booking "+b.BookingNumber, note), meta)
		})
		if err != nil {
			return err
		}
		out = b
		return tx.emit(ctx, domain.EventBookingDeleted, b.ID, bookingData(b))
	})
	return out, err
}

// DownloadTicketPDF renders the ticket and records the download.
func (s *AdminActionService) DownloadTicketPDF(ctx context.Context, actor Actor, bookingID string) ([]byte, *models.Booking, error) {
	if s.pdf == nil {
		return nil, nil, ErrPDFDisabled
	}
	b, err := s.tickets.Get(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	owner, err := s.users.Get(ctx, b.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, errors.Wrap(err, "load ticket owner")
	}
	pdf, err := s.pdf.Render(ctx, b, owner)
	if err != nil {
		return nil, nil, errors.Wrap(err, "render ticket")
	}
	_, err = s.run(ctx, actor, runOpts{op: domain.ActionTicketPDFDownload}, func(ctx context.Context, tx *txScope) error {
		meta := map[string]interface{}{"booking_number": b.BookingNumber, "bytes": len(pdf)}
		return tx.audit(ctx, domain.ActionTicketPDFDownload, bookingTarget(b), "downloaded ticket "+b.BookingNumber, meta)
	})
	if err != nil {
		return nil, nil, err
	}
	return pdf, b, nil
}

// Wallet and points actions

func (s *AdminActionService) CreditWallet(ctx context.Context, actor Actor, userID string, amount decimal.Decimal, note string) (*LedgerEntry, error) {
	var out *LedgerEntry
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionWalletAdd, lockKey: "wallet:" + userID}, func(ctx context.Context, tx *txScope) error {
		if _, err := tx.st.Profiles().GetByID(ctx, userID); err != nil {
			return errors.Wrapf(err, "profile %s", userID)
		}
		e, err := tx.wallets.Credit(ctx, userID, amount, domain.WalletTxAdd, describe("admin credit", note), "")
		if err != nil {
			return err
		}
		out = e
		meta := ledgerData(e)
		if err := tx.audit(ctx, domain.ActionWalletAdd, auditTarget{userID: userID}, describe("+"+e.Transaction.Amount.StringFixed(2), note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventWalletCredited, userID, meta)
	})
	return out, err
}

func (s *AdminActionService) DebitWallet(ctx context.Context, actor Actor, userID string, amount decimal.Decimal, note string) (*LedgerEntry, error) {
	var out *LedgerEntry
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionWalletDeduct, lockKey: "wallet:" + userID}, func(ctx context.Context, tx *txScope) error {
		if _, err := tx.st.Profiles().GetByID(ctx, userID); err != nil {
			return errors.Wrapf(err, "profile %s", userID)
		}
		e, err := tx.wallets.Debit(ctx, userID, amount, describe("admin debit", note), "")
		if err != nil {
			return err
		}
		out = e
		meta := ledgerData(e)
		if err := tx.audit(ctx, domain.ActionWalletDeduct, auditTarget{userID: userID}, describe(e.Transaction.Amount.StringFixed(2), note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventWalletDebited, userID, meta)
	})
	return out, err
}

// AdjustPoints changes the points counter. The traceability ledger row is
// written after commit and its failure does not undo the change.
func (s *AdminActionService) AdjustPoints(ctx context.Context, actor Actor, userID string, delta int64, note string) (int64, error) {
	action := domain.ActionPointsAdd
	if delta < 0 {
		action = domain.ActionPointsDeduct
	}
	var points int64
	_, err := s.run(ctx, actor, runOpts{op: action}, func(ctx context.Context, tx *txScope) error {
		p, err := tx.wallets.AdjustPoints(ctx, userID, delta)
		if err != nil {
			return err
		}
		points = p
		signed := strconv.FormatInt(delta, 10)
		if delta > 0 {
			signed = "+" + signed
		}
		meta := map[string]interface{}{"delta": delta, "points": p}
		if err := tx.audit(ctx, action, auditTarget{userID: userID}, describe(signed+" points", note), meta); err != nil {
			return err
		}
		tx.afterCommit(func(ctx context.Context) {
			if err := s.wallets.RecordPointsTransaction(ctx, userID, delta, describe("points adjustment", note)); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Int64("delta", delta).Msg("points transaction not recorded")
			}
		})
		return tx.emit(ctx, domain.EventPointsAdjusted, userID, meta)
	})
	return points, err
}

// User administration

func (s *AdminActionService) CreateUser(ctx context.Context, actor Actor, in NewUser) (*models.Profile, error) {
	var out *models.Profile
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionCreateUser}, func(ctx context.Context, tx *txScope) error {
		p, err := tx.users.CreateUser(ctx, in)
		if err != nil {
			return err
		}
		out = p
		meta := map[string]interface{}{"email": p.Email, "role": p.Role}
		if err := tx.audit(ctx, domain.ActionCreateUser, auditTarget{userID: p.ID}, "created "+p.Email, meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventProfileChanged, p.ID, meta)
	})
	return out, err
}

func (s *AdminActionService) UpdateUser(ctx context.Context, actor Actor, userID string, patch UserPatch, note string) (*models.Profile, error) {
	var out *models.Profile
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionUpdateUser}, func(ctx context.Context, tx *txScope) error {
		p, changed, err := tx.users.UpdateUser(ctx, userID, patch)
		if err != nil {
			return err
		}
		out = p
		meta := map[string]interface{}{"fields": changed}
		if err := tx.audit(ctx, domain.ActionUpdateUser, auditTarget{userID: p.ID}, describe(fmt.Sprintf("updated %v", changed), note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventProfileChanged, p.ID, meta)
	})
	return out, err
}

func (s *AdminActionService) SetAccountStatus(ctx context.Context, actor Actor, userID, status, note string) (*models.Profile, error) {
	var out *models.Profile
	_, err := s.run(ctx, actor, runOpts{op: "account_status"}, func(ctx context.Context, tx *txScope) error {
		p, prev, err := tx.users.SetAccountStatus(ctx, userID, status)
		if err != nil {
			return err
		}
		out = p
		meta := map[string]interface{}{"from": prev, "to": status}
		if err := tx.audit(ctx, "account_"+status, auditTarget{userID: p.ID}, describe(prev+" → "+status, note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventProfileChanged, p.ID, meta)
	})
	return out, err
}

func (s *AdminActionService) DeleteAccount(ctx context.Context, actor Actor, userID, note string) error {
	_, err := s.run(ctx, actor, runOpts{op: domain.ActionDeleteAccount}, func(ctx context.Context, tx *txScope) error {
		p, err := tx.users.DeleteAccount(ctx, userID)
		if err != nil {
			return err
		}
		meta := map[string]interface{}{"email": p.Email}
		if err := tx.audit(ctx, domain.ActionDeleteAccount, auditTarget{userID: p.ID}, describe("deleted "+p.Email, note), meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventProfileChanged, p.ID, map[string]interface{}{"deleted": true})
	})
	return err
}

// Repairs issued by the reconciliation job

// RepairRefund credits the refund of a cancelled booking whose ledger row is
// missing. It returns nil, nil when there is nothing to repair.
func (s *AdminActionService) RepairRefund(ctx context.Context, bookingID string) (*Cancellation, error) {
	var out *Cancellation
	_, err := s.run(ctx, SystemActor, runOpts{op: "repair_refund", lockKey: bookingKey(bookingID)}, func(ctx context.Context, tx *txScope) error {
		c, err := tx.tickets.RepairRefund(ctx, bookingID)
		if err != nil {
			return err
		}
		if c == nil {
			return errNoop
		}
		out = c
		meta := map[string]interface{}{
			"booking_number":  c.Booking.BookingNumber,
			"refunded_amount": c.Refunded.StringFixed(2),
			"repair":          true,
		}
		if err := tx.audit(ctx, domain.ActionRefundToWallet, bookingTarget(c.Booking), "reconciled missing refund credit", meta); err != nil {
			return err
		}
		return tx.emit(ctx, domain.EventWalletCredited, c.Booking.UserID, ledgerData(c.Ledger))
	})
	if errors.Is(err, errNoop) {
		return nil, nil
	}
	return out, err
}

// RepairWallet rebuilds a wallet's cached totals from its ledger. It returns
// nil, nil when the wallet already agrees with the ledger.
func (s *AdminActionService) RepairWallet(ctx context.Context, userID string) (*WalletDrift, error) {
	var out *WalletDrift
	_, err := s.run(ctx, SystemActor, runOpts{op: domain.ActionWalletReconcile, lockKey: "wallet:" + userID}, func(ctx context.Context, tx *txScope) error {
		d, err := tx.wallets.Rebuild(ctx, userID)
		if err != nil {
			return err
		}
		if !d.Drifted() {
			return errNoop
		}
		out = d
		balance := d.LedgerEarned.Sub(d.LedgerSpent)
		meta := map[string]interface{}{
			"previous_balance":      d.Wallet.Balance.StringFixed(2),
			"previous_total_earned": d.Wallet.TotalEarned.StringFixed(2),
			"previous_total_spent":  d.Wallet.TotalSpent.StringFixed(2),
			"balance":               balance.StringFixed(2),
			"total_earned":          d.LedgerEarned.StringFixed(2),
			"total_spent":           d.LedgerSpent.StringFixed(2),
		}
		summary := d.Wallet.Balance.StringFixed(2) + " → " + balance.StringFixed(2)
		return tx.audit(ctx, domain.ActionWalletReconcile, auditTarget{userID: userID}, summary, meta)
	})
	if errors.Is(err, errNoop) {
		return nil, nil
	}
	return out, err
}

// Reads

func (s *AdminActionService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.tickets.Get(ctx, bookingID)
}

func (s *AdminActionService) BookingAudit(ctx context.Context, bookingID string, limit int) ([]models.AdminActionLog, error) {
	return s.store.AuditLogs().ListByBooking(ctx, bookingID, clampLimit(limit))
}

func (s *AdminActionService) UserAudit(ctx context.Context, userID string, limit int) ([]models.AdminActionLog, error) {
	return s.store.AuditLogs().ListByUser(ctx, userID, clampLimit(limit))
}

func (s *AdminActionService) GetUser(ctx context.Context, userID string) (*models.Profile, error) {
	return s.users.Get(ctx, userID)
}

func (s *AdminActionService) WalletBalance(ctx context.Context, userID string) (*models.Wallet, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.wallets.Balance(ctx, userID)
}

func (s *AdminActionService) WalletTransactions(ctx context.Context, userID string, page, limit int) ([]models.WalletTransaction, int64, error) {
	return s.wallets.Transactions(ctx, userID, page, limit)
}

// Authenticate verifies admin credentials for login.
func (s *AdminActionService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	return s.users.Authenticate(ctx, email, password)
}

func clampLimit(limit int) int {
	if limit < 1 || limit > 200 {
		return 50
	}
	return limit
}
