package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// wordText walks word/document.xml and reconstructs plain text. Paragraphs
// become lines; table rows become one line with cells joined by " | ".
func wordText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	var (
		out        strings.Builder
		cell       strings.Builder
		row        []string
		tableDepth int
	)
	newline := func() {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteString("\n")
		}
	}
	flushLine := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		newline()
		out.WriteString(s)
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if out.Len() > 0 {
				break
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			}
		case xml.CharData:
			if tableDepth > 0 {
				cell.Write(t)
			} else {
				out.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "tc":
				if tableDepth > 0 {
					if text := strings.TrimSpace(cell.String()); text != "" {
						row = append(row, text)
					}
					cell.Reset()
				}
			case "tr":
				if tableDepth > 0 && len(row) > 0 {
					flushLine(strings.Join(row, " | "))
					row = row[:0]
				}
			case "p", "br":
				if tableDepth > 0 {
					cell.WriteString(" ")
				} else {
					newline()
				}
			}
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("no text content in document.xml")
	}
	return text, nil
}

// slideText pulls the visible text runs out of one slide's XML. Only a:t
// elements carry user text; everything else is geometry and styling.
func slideText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if out.Len() > 0 {
				break
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
