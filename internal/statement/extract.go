package statement

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fintrack/backend/internal/common"
)

// MaxPDFBytes bounds an uploaded statement.
const MaxPDFBytes = 10 << 20

var pdfMagic = []byte("%PDF")

// CheckPDF rejects payloads that are empty, too large or not PDF documents.
func CheckPDF(data []byte) error {
	switch {
	case len(data) == 0:
		return common.NewValidationError("file is empty")
	case len(data) > MaxPDFBytes:
		return common.NewValidationError(fmt.Sprintf("file exceeds %d MiB", MaxPDFBytes>>20))
	case !bytes.HasPrefix(data, pdfMagic):
		return common.NewValidationError("file is not a PDF document")
	}
	return nil
}

// ExtractText returns the page text row by row. Wide horizontal gaps become
// runs of four spaces so column boundaries survive for the line parser.
func ExtractText(data []byte) (text string, err error) {
	if err := CheckPDF(data); err != nil {
		return "", err
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", common.NewValidationError(fmt.Sprintf("unreadable PDF: %v", rec))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", common.NewValidationError(fmt.Sprintf("unreadable PDF: %v", err))
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", common.NewValidationError(fmt.Sprintf("page %d: %v", i, err))
		}
		for _, row := range rows {
			b.WriteString(joinRow(row.Content))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func joinRow(texts pdf.TextHorizontal) string {
	sort.Sort(texts)
	var b strings.Builder
	var prevEnd, prevSize float64
	for i, t := range texts {
		if i > 0 {
			gap := t.X - prevEnd
			size := prevSize
			if size <= 0 {
				size = 8
			}
			switch {
			case gap > 1.5*size:
				b.WriteString("    ")
			case gap > 0.2*size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
		prevSize = t.FontSize
	}
	return b.String()
}
