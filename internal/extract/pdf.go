package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(path string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("malformed pdf: %v", rec)}
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("open PDF: %w", err)}
	}

	var pages []string
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("extract page %d: %w", i, err)}
		}
		if pageText == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}
