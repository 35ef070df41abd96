package surql

import "strings"

// Normalize reduces a statement to a canonical comparison form: whitespace
// runs collapse to single spaces, the result is trimmed and lowercased, and
// a trailing semicolon is dropped.
//
// This is a deliberately shallow heuristic, not a grammar-aware equality.
// It can classify semantically equal statements as different (costing one
// redundant overwrite) but a false "same" would silently skip a real
// change, so the trade is made in that direction.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSuffix(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

// Equivalent reports whether two statements are equal after normalization.
func Equivalent(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// EquivalentDefinitions compares two definition statements ignoring their
// guard clauses: the live database reports definitions without "IF NOT
// EXISTS" or "OVERWRITE", so guards must not count as differences.
func EquivalentDefinitions(a, b string) bool {
	return stripGuard(Normalize(a)) == stripGuard(Normalize(b))
}

func stripGuard(s string) string {
	s = strings.Replace(s, " if not exists ", " ", 1)
	s = strings.Replace(s, " overwrite ", " ", 1)
	return s
}
