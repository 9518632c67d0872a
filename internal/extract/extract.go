// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Format is the document kind inferred from an upload's file name.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatUnsupported Format = ""
)

// ErrUnsupportedFormat is returned when ExtractFile is called with a format
// it does not handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError reports that a document could not be read.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// FormatFromFileName maps the extension after the last "." to a Format.
// .doc uploads take the DOCX path.
func FormatFromFileName(name string) (Format, string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return FormatUnsupported, ""
	}
	ext := strings.ToLower(name[i+1:])
	switch ext {
	case "pdf":
		return FormatPDF, ext
	case "doc", "docx":
		return FormatDOCX, ext
	default:
		return FormatUnsupported, ext
	}
}

// Extractor reads text from documents on disk. It holds no state.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOCX).
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile returns the trimmed text of the document at path. The result
// may be empty. Read failures are returned as *ExtractionError.
func (e *Extractor) ExtractFile(ctx context.Context, path string, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch format {
	case FormatPDF:
		return extractPDF(path)
	case FormatDOCX:
		return extractDOCX(path)
	default:
		return "", ErrUnsupportedFormat
	}
}
