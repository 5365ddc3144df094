// Package sheetcsv parses the delimited text the publisher serves for each
// tab. The published sheets are close to RFC 4180 but not reliably so, and a
// partial report beats no report: malformed quoting degrades to literal text
// instead of failing the whole document.
package sheetcsv

import "strings"

// Parse splits raw tab text into rows of fields. Fields may be enclosed in
// double quotes, with "" as the escaped quote inside a quoted field. Blank
// lines are skipped. An unterminated quote consumes the rest of its line
// literally; no input ever produces an error.
func Parse(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}
	return rows
}

func parseLine(line string) []string {
	var fields []string
	var b strings.Builder

	i := 0
	for i <= len(line) {
		if i == len(line) {
			fields = append(fields, b.String())
			break
		}
		switch line[i] {
		case ',':
			fields = append(fields, b.String())
			b.Reset()
			i++
		case '"':
			if b.Len() == 0 {
				consumed, content, ok := readQuoted(line[i:])
				if !ok {
					// Unterminated quote: take the rest of the line as-is.
					b.WriteString(line[i+1:])
					i = len(line)
					continue
				}
				b.WriteString(content)
				i += consumed
				continue
			}
			// Quote in the middle of an unquoted field stays literal.
			b.WriteByte('"')
			i++
		default:
			b.WriteByte(line[i])
			i++
		}
	}
	return fields
}

// readQuoted scans a quoted field starting at the opening quote. It returns
// the number of bytes consumed (including both quotes), the unescaped
// content, and whether a closing quote was found.
func readQuoted(s string) (int, string, bool) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		if s[i] != '"' {
			b.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			// Escaped quote.
			b.WriteByte('"')
			i += 2
			continue
		}
		return i + 1, b.String(), true
	}
	return 0, "", false
}
