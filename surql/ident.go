// Package surql compiles table descriptors into SurrealQL definition
// statements and parses live definitions back into descriptors. Compilation
// is pure and deterministic: the same descriptor always yields byte-identical
// statements, which is what makes textual diffing possible at all.
package surql

import (
	"strconv"
	"strings"
)

// plainIdent reports whether a name can appear unquoted in a statement.
func plainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Ident quotes a single identifier when needed.
func Ident(name string) string {
	if plainIdent(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// Str renders a SurrealQL string literal.
func Str(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, "\\", "\\\\"), "'", "\\'") + "'"
}

// literal renders an enum member: numbers and booleans stay bare, anything
// else becomes a string literal.
func literal(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	if s == "true" || s == "false" {
		return s
	}
	return Str(s)
}
