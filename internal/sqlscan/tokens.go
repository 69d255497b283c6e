package sqlscan

import (
	"regexp"
	"strings"
)

// Action is a SQL action keyword tracked by the gate.
type Action string

const (
	ActionSelect   Action = "SELECT"
	ActionWith     Action = "WITH"
	ActionDelete   Action = "DELETE"
	ActionInsert   Action = "INSERT"
	ActionUpdate   Action = "UPDATE"
	ActionDrop     Action = "DROP"
	ActionAlter    Action = "ALTER"
	ActionCreate   Action = "CREATE"
	ActionTruncate Action = "TRUNCATE"
)

// AllActions lists every recognized action keyword.
var AllActions = []Action{
	ActionSelect,
	ActionWith,
	ActionDelete,
	ActionInsert,
	ActionUpdate,
	ActionDrop,
	ActionAlter,
	ActionCreate,
	ActionTruncate,
}

// dateSuffixes mark identifiers as temporal columns or parameters.
var dateSuffixes = []string{"_date", "_at", "_time", "_timestamp"}

// windowVocabulary marks parameter names that size a rolling window in days.
var windowVocabulary = []string{
	"window_days",
	"lookback_days",
	"offset_days",
	"days_back",
	"period_days",
}

var (
	actionPattern = regexp.MustCompile(`(?i)\b(SELECT|WITH|DELETE|INSERT|UPDATE|DROP|ALTER|CREATE|TRUNCATE)\b`)
	identPattern  = regexp.MustCompile(`@?[A-Za-z_][A-Za-z0-9_]*`)
	paramPattern  = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)
)

// actionOccurrence holds one word-boundary matcher per action keyword.
var actionOccurrence = func() map[Action]*regexp.Regexp {
	m := make(map[Action]*regexp.Regexp, len(AllActions))
	for _, a := range AllActions {
		m[a] = regexp.MustCompile(`(?i)\b` + string(a) + `\b`)
	}
	return m
}()

var actionLookup = func() map[string]Action {
	m := make(map[string]Action, len(AllActions))
	for _, a := range AllActions {
		m[string(a)] = a
	}
	return m
}()

// ParseAction maps a keyword in any case to its canonical Action.
func ParseAction(s string) (Action, bool) {
	a, ok := actionLookup[strings.ToUpper(s)]
	return a, ok
}

// FindActions returns the distinct action keywords present in text,
// upper-cased, in first-occurrence order.
func FindActions(text string) []Action {
	var out []Action
	seen := make(map[Action]bool, len(AllActions))
	for _, m := range actionPattern.FindAllString(text, -1) {
		a := Action(strings.ToUpper(m))
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// CountActionOccurrences returns the number of word-boundary occurrences of
// the action keyword in text.
func CountActionOccurrences(text string, action Action) int {
	re, ok := actionOccurrence[action]
	if !ok {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

// FindDateColumns returns identifiers carrying a date suffix, lower-cased
// and de-duplicated in first-occurrence order. Parameter references are
// excluded: @start_date is a parameter, not a column.
func FindDateColumns(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range identPattern.FindAllString(text, -1) {
		if strings.HasPrefix(m, "@") {
			continue
		}
		name := strings.ToLower(m)
		if !hasDateSuffix(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// FindParams returns the parameter names referenced with the @ sigil,
// lower-cased and de-duplicated in first-occurrence order.
func FindParams(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range paramPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// IsDateParam reports whether a parameter name is date-related: it carries a
// date suffix or contains a window-vocabulary word.
func IsDateParam(name string) bool {
	n := strings.ToLower(name)
	if hasDateSuffix(n) {
		return true
	}
	for _, w := range windowVocabulary {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

// IsWindowParam reports whether a parameter name belongs to the window
// vocabulary (a day-count, not a point in time).
func IsWindowParam(name string) bool {
	n := strings.ToLower(name)
	for _, w := range windowVocabulary {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

func hasDateSuffix(name string) bool {
	for _, s := range dateSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
