package ticketpdf

import (
	"testing"
	"time"

	"basmah/internal/domain"
	"basmah/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLIncludesBookingAndHolder(t *testing.T) {
	exp := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	b := &models.Booking{
		BookingNumber: "BJ-1001",
		TicketStatus:  domain.TicketActive,
		TicketType:    "VIP",
		Quantity:      2,
		TotalAmount:   decimal.RequireFromString("45.5"),
		ExpiryDate:    &exp,
	}
	out, err := HTML(b, &models.Profile{FullName: "Lina <Haddad>", Email: "lina@example.com"})
	require.NoError(t, err)
	assert.Contains(t, out, "BJ-1001")
	assert.Contains(t, out, "45.50")
	assert.Contains(t, out, "01 Mar 2026 18:30")
	assert.Contains(t, out, "Lina &lt;Haddad&gt;")
	assert.Contains(t, out, "lina@example.com")
}

func TestHTMLWithoutOwner(t *testing.T) {
	out, err := HTML(&models.Booking{BookingNumber: "BJ-2", TicketStatus: domain.TicketCancelled}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "status-cancelled")
	assert.NotContains(t, out, "<no value>")
}
