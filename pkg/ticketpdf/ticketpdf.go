// Package ticketpdf prints booking tickets to PDF through headless Chrome.
package ticketpdf

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"basmah/internal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

var ticketTemplate = template.Must(template.New("ticket").Funcs(template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02 Jan 2006 15:04")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
.ticket { border: 2px solid #2b2d42; border-radius: 12px; padding: 24px; }
h1 { margin: 0 0 8px; font-size: 22px; }
.number { font-size: 28px; font-weight: bold; letter-spacing: 2px; }
.status { text-transform: uppercase; font-weight: bold; }
.status-cancelled { color: #c0392b; }
table { width: 100%; margin-top: 16px; border-collapse: collapse; }
td { padding: 6px 0; border-bottom: 1px solid #eee; }
td.label { color: #777; width: 40%; }
</style>
</head>
<body>
<div class="ticket">
  <h1>Basmah Jo</h1>
  <div class="number">{{.Booking.BookingNumber}}</div>
  <div class="status status-{{.Booking.TicketStatus}}">{{.Booking.TicketStatus}}</div>
  <table>
    <tr><td class="label">Holder</td><td>{{.HolderName}}</td></tr>
    <tr><td class="label">Email</td><td>{{.HolderEmail}}</td></tr>
    <tr><td class="label">Ticket type</td><td>{{.Booking.TicketType}}</td></tr>
    <tr><td class="label">Quantity</td><td>{{.Booking.Quantity}}</td></tr>
    <tr><td class="label">Total</td><td>{{.Booking.TotalAmount.StringFixed 2}}</td></tr>
    <tr><td class="label">Scheduled</td><td>{{date .Booking.ScheduledDate}}</td></tr>
    <tr><td class="label">Valid until</td><td>{{date .Booking.ExpiryDate}}</td></tr>
  </table>
</div>
</body>
</html>`))

type ticketView struct {
	Booking     *models.Booking
	HolderName  string
	HolderEmail string
}

// HTML renders the printable ticket markup. owner may be nil when the
// holder's profile has been removed.
func HTML(b *models.Booking, owner *models.Profile) (string, error) {
	v := ticketView{Booking: b, HolderName: "-", HolderEmail: "-"}
	if owner != nil {
		if owner.FullName != "" {
			v.HolderName = owner.FullName
		}
		v.HolderEmail = owner.Email
	}
	var buf bytes.Buffer
	if err := ticketTemplate.Execute(&buf, v); err != nil {
		return "", errors.Wrap(err, "render ticket template")
	}
	return buf.String(), nil
}

type Renderer struct {
	timeout time.Duration
}

func NewRenderer(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Renderer{timeout: timeout}
}

// Render starts a short-lived browser per call.
func (r *Renderer) Render(ctx context.Context, b *models.Booking, owner *models.Profile) ([]byte, error) {
	html, err := HTML(b, owner)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "print ticket %s", b.BookingNumber)
	}
	return pdf, nil
}
