package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders s as a landscape A4 table, repeating the header on each page.
// Column widths follow the widest cell of each column.
func WritePDF(w io.Writer, title string, s SheetSpec, now time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title), false)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Généré le "+now.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(s, pageW-left-right)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(221, 235, 247)
		for i, h := range s.Header {
			pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	_, pageH := pdf.GetPageSize()
	for _, row := range s.Rows {
		if pdf.GetY()+6 > pageH-15 {
			pdf.AddPage()
			header()
		}
		for i := range s.Header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			pdf.CellFormat(widths[i], 6, fit(pdf, tr(v), widths[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(s.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, tr("Aucune donnée"), "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

func columnWidths(s SheetSpec, total float64) []float64 {
	weights := make([]float64, len(s.Header))
	sum := 0.0
	for i, h := range s.Header {
		widest := visualLen(h)
		for _, row := range s.Rows {
			if i < len(row) {
				widest = max(widest, visualLen(row[i]))
			}
		}
		weights[i] = float64(min(max(widest, 6), 40))
		sum += weights[i]
	}
	out := make([]float64, len(weights))
	for i, wgt := range weights {
		out[i] = total * wgt / sum
	}
	return out
}

// fit truncates s with an ellipsis so that it fits in width mm with the current font.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	const pad = 2
	if pdf.GetStringWidth(s) <= width-pad {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > width-pad {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}
