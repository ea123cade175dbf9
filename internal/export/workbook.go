// Package export builds the xlsx/pdf files of the mémoires back-office and parses
// the same xlsx templates back on import.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// NewWorkbook renders every sheet with a bold, filtered header row and approximate column widths.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", columnName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		if len(s.Header) > 0 {
			end := columnName(len(s.Header)) + "1"
			_ = f.SetCellStyle(name, "A1", end, bold)
			_ = f.AutoFilter(name, "A1:"+end, nil)
		}

		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", columnName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}

		for c := 1; c <= len(s.Header); c++ {
			widest := visualLen(s.Header[c-1]) + 2
			for r := 0; r < min(50, len(s.Rows)); r++ {
				if c-1 < len(s.Rows[r]) {
					widest = max(widest, visualLen(s.Rows[r][c-1]))
				}
			}
			w := min(max(float64(widest)*1.1, 12), 50)
			_ = f.SetColWidth(name, columnName(c), columnName(c), w)
		}
	}
	return f, nil
}

// WriteXLSX streams the workbook built from sheets to w.
func WriteXLSX(w io.Writer, sheets []SheetSpec) error {
	f, err := NewWorkbook(sheets)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

// Filename builds a download name like "enseignants_2025-06-02.xlsx".
func Filename(base, ext string, now time.Time) string {
	return sanitizeFileName(fmt.Sprintf("%s_%s.%s", base, now.Format("2006-01-02"), ext))
}

func columnName(n int) string {
	// 1 -> A; 27 -> AA
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), "_")
	return invalidFileRe.ReplaceAllString(s, "_")
}
