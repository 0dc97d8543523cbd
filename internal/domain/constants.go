package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// TicketStatus is the entry-control lifecycle of a booking. It is the only
// stored lifecycle value; the booking-level status column is derived from it.
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketActive, TicketUsed, TicketExpired, TicketCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s TicketStatus) Terminal() bool { return s == TicketCancelled }

// BookingStatus maps the ticket lifecycle onto the legacy booking-level status.
func (s TicketStatus) BookingStatus() string {
	switch s {
	case TicketActive:
		return BookingConfirmed
	case TicketUsed:
		return BookingCompleted
	case TicketExpired:
		return BookingExpired
	case TicketCancelled:
		return BookingCancelled
	}
	return BookingPending
}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingExpired   = "expired"
	BookingCancelled = "cancelled"
)

// Wallet transaction types
const (
	WalletTxAdd          = "add"
	WalletTxDeduct       = "deduct"
	WalletTxRefund       = "refund"
	WalletTxPointsAdd    = "points_add"
	WalletTxPointsDeduct = "points_deduct"
)

// MoneyTxTypes are the transaction types that move the wallet balance.
// Points entries share the table for traceability only.
var MoneyTxTypes = []string{WalletTxAdd, WalletTxDeduct, WalletTxRefund}

// Admin action log vocabulary. Values are persisted verbatim.
const (
	ActionStatusChange        = "status_change"
	ActionExtendExpiry        = "extend_expiry"
	ActionTransferTicket      = "transfer_ticket"
	ActionRefundToWallet      = "refund_to_wallet"
	ActionCancelWithoutRefund = "cancel_without_refund"
	ActionDeleteTicket        = "delete_ticket"
	ActionWalletAdd           = "wallet_add"
	ActionWalletDeduct        = "wallet_deduct"
	ActionPointsAdd           = "points_add"
	ActionPointsDeduct        = "points_deduct"
	ActionCreateUser          = "create_user"
	ActionUpdateUser          = "update_user"
	ActionAccountBlocked      = "account_blocked"
	ActionAccountDeactivated  = "account_deactivated"
	ActionAccountActive       = "account_active"
	ActionDeleteAccount       = "delete_account"
	ActionTicketTransfer      = "ticket_transfer"
	ActionTicketCancelRefund  = "ticket_cancel_refund"
	ActionTicketCancelNoRefnd = "ticket_cancel_no_refund"
	ActionTicketPDFDownload   = "ticket_pdf_download"
	ActionWalletReconcile     = "wallet_reconcile"
)

const (
	ActorTypeAdmin  = "admin"
	ActorTypeSystem = "system"
)

const (
	AccountActive      = "active"
	AccountBlocked     = "blocked"
	AccountDeactivated = "deactivated"
)

// Origin identifies the admin screen an action was issued from. The booking
// and user-management screens log the same ticket operations under
// different action names.
type Origin string

const (
	OriginBookings Origin = "bookings"
	OriginUsers    Origin = "users"
)

// Recipient lookup keys for ticket transfer
const (
	ResolveByEmail  = "email"
	ResolveByPhone  = "phone"
	ResolveByUserID = "user_id"
)

// Outbox event types
const (
	EventBookingUpdated     = "booking.updated"
	EventBookingTransferred = "booking.transferred"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingDeleted     = "booking.deleted"
	EventWalletCredited     = "wallet.credited"
	EventWalletDebited      = "wallet.debited"
	EventPointsAdjusted     = "points.adjusted"
	EventProfileChanged     = "profile.changed"
)
