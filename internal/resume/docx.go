package resume

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDocxText returns the non-empty body paragraphs followed by one line
// per table row, cells joined with " | ".
func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	var parsed wordDocument
	if err := xml.Unmarshal([]byte(doc.Editable().GetContent()), &parsed); err != nil {
		return "", fmt.Errorf("failed to decode document.xml: %w", err)
	}

	var lines []string
	for _, p := range parsed.Body.Paragraphs {
		if strings.TrimSpace(p.text) != "" {
			lines = append(lines, p.text)
		}
	}
	for _, table := range parsed.Body.Tables {
		for _, row := range table.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if text := cell.text(); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// The WordprocessingML subset needed for text. Tags carry no namespace so
// they match the w: elements.
type wordDocument struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
		Tables     []wordTable     `xml:"tbl"`
	} `xml:"body"`
}

type wordTable struct {
	Rows []wordRow `xml:"tr"`
}

type wordRow struct {
	Cells []wordCell `xml:"tc"`
}

type wordCell struct {
	Paragraphs []wordParagraph `xml:"p"`
}

func (c wordCell) text() string {
	parts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		parts[i] = p.text
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

type wordParagraph struct {
	text string
}

// UnmarshalXML collects the character data of every w:t below the paragraph,
// including runs nested in hyperlinks and smart tags.
func (p *wordParagraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	inText := false
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if depth == 0 {
				p.text = b.String()
				return nil
			}
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
}
