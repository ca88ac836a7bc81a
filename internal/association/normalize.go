package association

import "strings"

// Normalize turns a raw product name into the key used by every index,
// so "Milk ", "milk" and "MILK" all resolve to "milk".
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
