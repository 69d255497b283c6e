package policy

import "strings"

// builtinExempt names the negative-path probe templates that ship with
// the template corpus. They exist to prove the gate fails bad inputs, so
// a gate run over the full corpus must not fail because of them.
var builtinExempt = []string{
	"qa_unfiltered_probe",
	"qa_tenant_bypass_probe",
}

// ExemptSet resolves which template identifiers bypass the
// identity-scoped checks. Exemption is identity-based: it follows the
// template id, not any rule in the policy document.
type ExemptSet map[string]bool

// NewExemptSet combines the built-in probe identifiers with additional
// ids, typically from a --exempt flag. Blank entries are ignored.
func NewExemptSet(extra ...string) ExemptSet {
	set := make(ExemptSet, len(builtinExempt)+len(extra))
	for _, id := range builtinExempt {
		set[id] = true
	}
	for _, id := range extra {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

// Contains reports whether a template id is exempt.
func (s ExemptSet) Contains(id string) bool {
	return s[id]
}
