package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func writeDocx(t *testing.T, body string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "resume.docx")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return path
}

func TestExtractFileDocxParagraphs(t *testing.T) {
	path := writeDocx(t,
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
			`<w:p w:rsidR="00AB"><w:r><w:t xml:space="preserve">Go </w:t></w:r><w:r><w:t>Engineer</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>`)

	got, err := NewExtractor().ExtractFile(context.Background(), path, FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	want := "Jane Doe\nGo Engineer\na\tb"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

const textBoxParagraph = `<w:p>` +
	`<w:r><w:t xml:space="preserve">Before </w:t></w:r>` +
	`<w:r><mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
	`<mc:Choice Requires="wps"><w:drawing>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><a:graphicData>` +
	`<a:p><a:r><a:t>Shape</a:t></a:r></a:p>` +
	`<wps:wsp xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"><wps:txbx>` +
	`<w:txbxContent><w:p><w:r><w:t>Box</w:t></w:r></w:p></w:txbxContent>` +
	`</wps:txbx></wps:wsp></a:graphicData></a:graphic></w:drawing></mc:Choice>` +
	`<mc:Fallback><w:pict><v:shape xmlns:v="urn:schemas-microsoft-com:vml"><v:textbox>` +
	`<w:txbxContent><w:p><w:r><w:t>Box</w:t></w:r></w:p></w:txbxContent>` +
	`</v:textbox></v:shape></w:pict></mc:Fallback>` +
	`</mc:AlternateContent></w:r>` +
	`<w:r><w:t>After</w:t></w:r>` +
	`</w:p>`

func TestExtractFileDocxTextBoxKeepsOuterParagraph(t *testing.T) {
	path := writeDocx(t,
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
			textBoxParagraph+
			`<w:p><w:r><w:t>Go Engineer</w:t></w:r></w:p>`)

	got, err := NewExtractor().ExtractFile(context.Background(), path, FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	want := "Jane Doe\nBefore After\nGo Engineer"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParagraphTextIgnoresParagraphPropertyTabs(t *testing.T) {
	xmlDoc := `<w:document ` + wordNS + `><w:body>` +
		`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Skills</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Go</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`</w:body></w:document>`
	got, err := paragraphText(xmlDoc)
	if err != nil {
		t.Fatalf("paragraphText: %v", err)
	}
	if got != "Skills\nGo" {
		t.Fatalf("unexpected text %q", got)
	}
}

// buildPDF writes a minimal PDF with one Helvetica text line per page. An
// empty string yields a page with an empty content stream.
func buildPDF(t *testing.T, pages []string) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefAt)

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestExtractFilePDFPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		words []string
	}{
		{name: "blank page", pages: []string{""}, words: nil},
		{name: "single page", pages: []string{"Hello"}, words: []string{"Hello"}},
		{name: "blank page between", pages: []string{"Hello", "", "World"}, words: []string{"Hello", "World"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor().ExtractFile(context.Background(), buildPDF(t, tt.pages), FormatPDF)
			if err != nil {
				t.Fatalf("ExtractFile: %v", err)
			}
			if len(tt.words) == 0 {
				if got != "" {
					t.Fatalf("expected empty text, got %q", got)
				}
				return
			}
			if got != strings.TrimSpace(got) {
				t.Fatalf("text not trimmed: %q", got)
			}
			if fields := strings.Fields(got); strings.Join(fields, " ") != strings.Join(tt.words, " ") {
				t.Fatalf("got words %q, want %q", fields, tt.words)
			}
			if len(tt.words) > 1 && strings.Contains(got, "Hello World") {
				t.Fatalf("pages must be separated by a line break, got %q", got)
			}
		})
	}
}

func TestExtractFileEmptyDocxYieldsEmptyString(t *testing.T) {
	path := writeDocx(t, `<w:p></w:p>`)
	got, err := NewExtractor().ExtractFile(context.Background(), path, FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestExtractFileCorruptInputs(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		format Format
	}{
		{name: "pdf", file: "bad.pdf", format: FormatPDF},
		{name: "docx", file: "bad.docx", format: FormatDOCX},
		{name: "legacy doc", file: "old.doc", format: FormatDOCX},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte("definitely not a document"), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := NewExtractor().ExtractFile(context.Background(), path, tt.format)
			var extErr *ExtractionError
			if !errors.As(err, &extErr) {
				t.Fatalf("expected *ExtractionError, got %T %v", err, err)
			}
			if extErr.Format != tt.format {
				t.Fatalf("expected format %q, got %q", tt.format, extErr.Format)
			}
		})
	}
}

func TestExtractFileUnsupportedFormat(t *testing.T) {
	_, err := NewExtractor().ExtractFile(context.Background(), "x.txt", FormatUnsupported)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFormatFromFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantExt string
	}{
		{name: "cv.pdf", want: FormatPDF, wantExt: "pdf"},
		{name: "CV.PDF", want: FormatPDF, wantExt: "pdf"},
		{name: "cv.docx", want: FormatDOCX, wantExt: "docx"},
		{name: "cv.doc", want: FormatDOCX, wantExt: "doc"},
		{name: "my.cv.final.Docx", want: FormatDOCX, wantExt: "docx"},
		{name: "cv.txt", want: FormatUnsupported, wantExt: "txt"},
		{name: "cv.docx.exe", want: FormatUnsupported, wantExt: "exe"},
		{name: "noext", want: FormatUnsupported, wantExt: ""},
	}
	for _, tt := range tests {
		got, ext := FormatFromFileName(tt.name)
		if got != tt.want || ext != tt.wantExt {
			t.Fatalf("FormatFromFileName(%q) = %q,%q; want %q,%q", tt.name, got, ext, tt.want, tt.wantExt)
		}
	}
}

func TestParagraphTextBreaksAndNamespaces(t *testing.T) {
	xmlDoc := `<w:document ` + wordNS + `><w:body>` +
		`<w:p><w:r><w:t>line1</w:t><w:br/><w:t>line2</w:t></w:r></w:p>` +
		`<w:p><w:r><w:instrText>IGNORED</w:instrText></w:r></w:p>` +
		`<w:p><w:r><w:t>end</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	got, err := paragraphText(xmlDoc)
	if err != nil {
		t.Fatalf("paragraphText: %v", err)
	}
	if got != "line1\nline2\n\nend" {
		t.Fatalf("unexpected text %q", got)
	}
	if strings.Contains(got, "IGNORED") {
		t.Fatalf("non-text runs must not contribute")
	}
}

func TestParagraphTextRejectsBrokenXML(t *testing.T) {
	if _, err := paragraphText("<w:document><w:p>"); err == nil {
		t.Fatalf("expected error for truncated xml")
	}
}
