// Package receipt renders booking receipts as single page PDF documents.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/models"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

type Renderer struct {
	company   string
	verifyURL string
}

func NewRenderer(cfg config.ReceiptConfig) *Renderer {
	return &Renderer{
		company:   cfg.Company,
		verifyURL: strings.TrimRight(cfg.VerifyURL, "/"),
	}
}

// VerifyLink is the URL encoded in the receipt QR code.
func (r *Renderer) VerifyLink(bookingID string) string {
	if r.verifyURL == "" {
		return bookingID
	}
	return r.verifyURL + "/" + bookingID
}

func (r *Renderer) Render(booking *models.Booking, payment *models.Payment) ([]byte, error) {
	if booking == nil || payment == nil {
		return nil, fmt.Errorf("receipt needs a booking and its payment")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Booking receipt "+booking.ID, true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, strings.ToUpper(r.company)+" TRAVEL RECEIPT")
	pdf.Ln(16)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// Summary + QR
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 50, "F")

	pdf.SetXY(20, yStart+6)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "BOOKING SUMMARY")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	line(pdf, "Booking ID: %s", booking.ID)
	line(pdf, "Traveller: %s", booking.Username)
	line(pdf, "Booked at: %s", booking.CreatedAt.UTC().Format(time.RFC1123))
	line(pdf, "Status: %s", booking.Status)

	qr, err := qrcode.Encode(r.VerifyLink(booking.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 145, yStart+2, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 58)

	section(pdf, "TRIP")
	line(pdf, "Route: %s -> %s", booking.From, booking.To)
	line(pdf, "Travellers: %d adult(s), %d child(ren)", booking.Adults, booking.Children)
	if booking.Depart != "" {
		line(pdf, "Departure: %s", booking.Depart)
	}
	if booking.Arrival != "" {
		line(pdf, "Return: %s", booking.Arrival)
	}
	pdf.Ln(4)

	section(pdf, "PAYMENT")
	line(pdf, "Payment ID: %s", payment.ID)
	line(pdf, "Card: %s **** %s", strings.ToUpper(payment.CardBrand), payment.CardLast4)
	line(pdf, "Card holder: %s", payment.CardHolder)
	pdf.SetFont("Helvetica", "B", 12)
	line(pdf, "Total paid: %s", payment.Amount.StringFixed(2))

	// Footer
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Scan the code to verify this receipt. "+r.company, "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func line(pdf *gofpdf.Fpdf, format string, args ...interface{}) {
	pdf.Cell(0, 7, fmt.Sprintf(format, args...))
	pdf.Ln(6)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
}
