// Package report renders amortization schedules as PDF documents.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"loanbroker/internal/emi"
)

const (
	marginLeft   = 15.0
	marginTop    = 15.0
	marginRight  = 15.0
	marginBottom = 15.0
	pageWidth    = 210.0
	contentWidth = pageWidth - marginLeft - marginRight
	rowHeight    = 6.0
)

// core fonts have no rupee glyph
const currency = "Rs. "

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Month", 20, "C"},
	{"Installment", 40, "R"},
	{"Principal", 40, "R"},
	{"Interest", 40, "R"},
	{"Balance", contentWidth - 140, "R"},
}

// SchedulePDF renders the schedule summary and table to w.
func SchedulePDF(w io.Writer, in emi.Input, res emi.Result, periods []emi.Period, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle("Loan amortization schedule", false)
	pdf.SetCreator("loanbroker", false)
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			tableHeader(pdf)
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-marginBottom + 5)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	summary(pdf, in, res, generatedAt)

	if len(periods) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(contentWidth, 8, "No repayments: principal or tenure is zero.", "", 1, "L", false, 0, "")
	} else {
		tableHeader(pdf)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
		for i, p := range periods {
			fill := i%2 == 1
			pdf.SetFillColor(245, 247, 250)
			cells := []string{
				fmt.Sprintf("%d", p.Month),
				emi.FormatAmount(p.Installment),
				emi.FormatAmount(p.Principal),
				emi.FormatAmount(p.Interest),
				emi.FormatAmount(p.Balance),
			}
			for j, c := range columns {
				pdf.CellFormat(c.width, rowHeight, cells[j], "", 0, c.align, fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render schedule pdf: %w", err)
	}
	return pdf.Output(w)
}

func summary(pdf *fpdf.Fpdf, in emi.Input, res emi.Result, generatedAt time.Time) {
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(contentWidth, 10, "Loan Amortization Schedule", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(contentWidth, 5, "Generated "+generatedAt.Format("2 January 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Loan amount", currency + emi.FormatAmount(in.Principal)},
		{"Interest rate", fmt.Sprintf("%g%% per annum", in.AnnualRatePercent)},
		{"Tenure", fmt.Sprintf("%d years (%d months)", in.TenureYears, in.Periods())},
		{"Monthly EMI", currency + emi.FormatAmount(res.Installment)},
		{"Total interest", currency + emi.FormatAmount(res.TotalInterest)},
		{"Total payment", currency + emi.FormatAmount(res.TotalPayment)},
	}
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(245, 247, 250)
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(50, 7, r[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(50, 50, 50)
		pdf.CellFormat(contentWidth-50, 7, r[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(0, 51, 102)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(50, 50, 50)
}
