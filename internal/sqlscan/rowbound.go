package sqlscan

import (
	"regexp"
	"strconv"
	"strings"
)

// RowBound is a LIMIT or TOP integer literal found in stripped text.
type RowBound struct {
	Keyword string `json:"keyword"`
	Value   int    `json:"value"`
	Raw     string `json:"raw"`
}

// appMarker declares that row volume is bounded by the calling application
// rather than by the template. It usually lives in a comment, so the marker
// scan runs over raw text.
const appMarker = "application-controlled"

var (
	rowBoundPattern  = regexp.MustCompile(`(?i)\b(LIMIT|TOP)\s+(\d+)\b`)
	aggregatePattern = regexp.MustCompile(`(?i)\b(?:COUNT|SUM|AVG|MIN|MAX)\s*\(|\bGROUP\s+BY\b`)
)

// FindRowBounds returns every LIMIT/TOP integer literal in text. A LIMIT
// bound to a parameter is not a literal and is not reported here.
func FindRowBounds(text string) []RowBound {
	var out []RowBound
	for _, m := range rowBoundPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, RowBound{
			Keyword: strings.ToUpper(m[1]),
			Value:   n,
			Raw:     strings.TrimSpace(m[0]),
		})
	}
	return out
}

// HasAggregation reports whether text contains an aggregation call
// (COUNT/SUM/AVG/MIN/MAX) or a GROUP BY, either of which bounds result
// volume without a LIMIT literal.
func HasAggregation(text string) bool {
	return aggregatePattern.MatchString(text)
}

// HasRowBoundMarker reports whether raw text carries the
// application-controlled marker.
func HasRowBoundMarker(raw string) bool {
	return strings.Contains(strings.ToLower(raw), appMarker)
}
