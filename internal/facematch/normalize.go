package facematch

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeDisplayName canonicalizes a display name before it is stored:
// NFC composition (so "João" typed with a combining tilde equals the
// precomposed form), trimmed, with inner whitespace runs collapsed.
func NormalizeDisplayName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}
