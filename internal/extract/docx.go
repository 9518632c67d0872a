package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: fmt.Errorf("open DOCX: %w", err)}
	}
	defer r.Close()

	text, err := paragraphText(r.Editable().GetContent())
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	return text, nil
}

const (
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	markupCompatNS   = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// paragraphText walks WordprocessingML and returns the text of each
// outermost w:p joined by "\n". Only w:t runs contribute characters; w:tab
// and w:br inside a run map to "\t" and "\n". Paragraphs nested in text
// boxes are skipped, as are mc:Fallback copies of alternate content.
func paragraphText(documentXML string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(documentXML))
	var (
		paragraphs []string
		cur        strings.Builder
		paraDepth  int
		runDepth   int
		skipDepth  int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			if t.Name.Space == markupCompatNS && t.Name.Local == "Fallback" {
				skipDepth = 1
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				paraDepth++
				if paraDepth == 1 {
					cur.Reset()
				}
			case "r":
				runDepth++
			case "t":
				inText = paraDepth == 1
			case "tab":
				if paraDepth == 1 && runDepth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if paraDepth == 1 && runDepth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "p":
				if paraDepth == 1 {
					paragraphs = append(paragraphs, cur.String())
				}
				if paraDepth > 0 {
					paraDepth--
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
