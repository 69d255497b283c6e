// Package sqlscan provides the lexical analysis the gate runs over SQL
// template text: comment stripping, keyword and identifier extraction,
// temporal filter recognition, and forbidden-construct scanning. Nothing in
// this package executes or parses SQL; every check is a bounded text scan
// over the narrow template dialect.
package sqlscan

import "strings"

// Strip removes SQL comments from text. Line comments run from -- to the end
// of the line (the newline survives); block comments /* ... */ do not nest
// and are replaced by a single space so surrounding tokens stay separated.
// An unterminated block comment swallows the rest of the input.
//
// Limitation: the scan is not string-literal aware, so a comment marker
// inside a quoted literal starts a comment. Checks run on both raw and
// stripped text, which keeps the failure mode a spurious violation rather
// than a missed one.
func Strip(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] == '-' && i+1 < len(text) && text[i+1] == '-' {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			continue
		}
		if text[i] == '/' && i+1 < len(text) && text[i+1] == '*' {
			i += 2
			for i < len(text) {
				if text[i] == '*' && i+1 < len(text) && text[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
