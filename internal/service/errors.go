package service

import (
	"basmah/internal/repository"

	"github.com/pkg/errors"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidStatus      = errors.New("invalid ticket status")
	ErrInvalidExpiry      = errors.New("invalid expiry date")
	ErrNotTransferable    = errors.New("ticket is cancelled or already used and cannot be transferred")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrAlreadyOwned       = errors.New("recipient already owns this ticket")
	ErrTicketCancelled    = errors.New("ticket is cancelled")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrLedgerInvariant    = errors.New("wallet balance does not match its totals")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is not active")
	ErrPartialFailure     = errors.New("operation partially completed")
	ErrUploadFailed       = errors.New("upload failed")
	ErrStorageDisabled    = errors.New("object storage is not configured")
	ErrReconcileRunning   = errors.New("reconciliation already running")

	// Store errors are re-exported so callers only import this package.
	ErrNotFound = repository.ErrNotFound
	ErrConflict = repository.ErrConflict
)

var ErrPDFDisabled = errors.New("ticket pdf rendering is not configured")

// Rejected reports whether err is a business rule rejection rather than an
// infrastructure failure.
func Rejected(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidInput, ErrInvalidStatus, ErrInvalidExpiry,
		ErrNotTransferable, ErrRecipientNotFound, ErrAlreadyOwned, ErrTicketCancelled,
		ErrInsufficientFunds, ErrEmailTaken, ErrInvalidCredentials, ErrAccountDisabled,
		ErrNotFound, ErrConflict, ErrReconcileRunning,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
