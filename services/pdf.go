package services

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportData is a recorded search rendered as a printable sheet for the agent.
type ReportData struct {
	ID          string
	Kind        string
	Params      map[string]string
	Status      int
	ResultCount int
	Error       string
	CreatedAt   time.Time
	Rows        []SummaryRow
}

var kindTitles = map[string]string{
	KindFlights:    "Flight Offers",
	KindVisa:       "Visa Requirements",
	KindAirports:   "Nearest Airports",
	KindHotels:     "Hotel Offers",
	KindActivities: "Activities",
}

// GenerateReportPDF generates a PDF and returns raw bytes (no filesystem needed)
func GenerateReportPDF(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	title := kindTitles[data.Kind]
	if title == "" {
		title = data.Kind
	}

	// ── Header Bar ───────────────────────────────────────────
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(170, 10, "Travel Agent Assistant", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, tr(title), "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	// ── Disclaimer ───────────────────────────────────────────
	pdf.SetFillColor(255, 248, 225)
	pdf.SetDrawColor(212, 168, 67)
	pdf.SetTextColor(130, 90, 20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetLineWidth(0.4)
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 10, "FD")
	pdf.SetXY(23, y+2)
	pdf.MultiCell(164, 3.5,
		"Provider data as returned at search time. This is NOT a booking confirmation; prices and rules change.",
		"", "C", false)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Ln(6)

	// ── Section Helper ───────────────────────────────────────
	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+tr(title), "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(115, 7, tr(value), "", 1, "L", false, 0, "")
	}

	// ── Search ───────────────────────────────────────────────
	sectionHeader("Search")
	row("Reference", data.ID)
	row("Searched", data.CreatedAt.UTC().Format("02 Jan 2006, 15:04 UTC"))
	keys := make([]string, 0, len(data.Params))
	for k := range data.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		row(k, fmtDateReadable(data.Params[k]))
	}
	row("Status", fmt.Sprintf("%d", data.Status))
	if data.Error != "" {
		row("Error", data.Error)
	}
	pdf.Ln(4)

	// ── Results ──────────────────────────────────────────────
	sectionHeader(fmt.Sprintf("Results (%d)", data.ResultCount))
	if len(data.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(170, 7, "No results were returned for this search.", "", 1, "L", false, 0, "")
	}
	for i, r := range data.Rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(130, 6, tr(fmt.Sprintf("%d. %s", i+1, r.Title)), "", 0, "L", false, 0, "")
		pdf.SetTextColor(13, 24, 37)
		pdf.CellFormat(40, 6, tr(r.Amount), "", 1, "R", false, 0, "")
		if r.Detail != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(90, 90, 90)
			pdf.MultiCell(170, 4.5, tr(r.Detail), "", "L", false)
		}
		pdf.Ln(1.5)
	}

	// ── Footer ────────────────────────────────────────────────
	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8,
		"Generated by Travel Agent Assistant - data from Amadeus and Sherpa - not a booking confirmation",
		"", 0, "C", false, 0, "")

	// ── Write to buffer ───────────────────────────────────────
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// fmtDateReadable renders YYYY-MM-DD values as dates and leaves anything else alone.
func fmtDateReadable(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02 Jan 2006 (Mon)")
}
