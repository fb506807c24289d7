// Package sqlname derives and quotes SQL identifiers.
package sqlname

import (
	"strings"
)

// Fallback is used when a name contains no usable characters.
const Fallback = "project"

// Safe turns a human-readable name into an identifier that is valid unquoted in
// PostgreSQL and SQLite: lower case, every run of characters outside [a-z0-9]
// (underscores included) collapses to a single underscore, no leading or trailing
// underscores, and a leading digit gets an underscore prefix. Safe is deterministic and Safe(Safe(s)) == Safe(s).
func Safe(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !ok {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return Fallback
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// Quote wraps an identifier in double quotes, doubling embedded quotes.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
