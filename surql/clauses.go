package surql

import "strings"

// clause is one keyword-introduced segment of a definition statement tail.
type clause struct {
	key  string
	text string
}

// splitClauses cuts a statement tail into clauses at top-level occurrences
// of the given keywords. Keyword words inside string literals, brackets,
// parentheses or braces never start a clause, so expressions like
// "string::len($value) > 2" or a DEFAULT of "'type'" survive intact.
func splitClauses(s string, keywords map[string]bool) []clause {
	var out []clause
	var cur *clause
	var buf strings.Builder

	flush := func() {
		if cur != nil {
			cur.text = strings.TrimSpace(buf.String())
			out = append(out, *cur)
		}
		buf.Reset()
	}

	depth := 0
	var quote rune
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]

		if quote != 0 {
			buf.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				buf.WriteRune(runes[i+1])
				i += 2
				continue
			}
			if r == quote {
				quote = 0
			}
			i++
			continue
		}

		switch r {
		case '\'', '"', '`':
			quote = r
			buf.WriteRune(r)
			i++
			continue
		case '(', '[', '{':
			depth++
			buf.WriteRune(r)
			i++
			continue
		case ')', ']', '}':
			depth--
			buf.WriteRune(r)
			i++
			continue
		}

		// A leading '$' makes the word a parameter reference ($value), never
		// a clause keyword.
		if depth == 0 && isWordStart(r) && (i == 0 || (!isWordRune(runes[i-1]) && runes[i-1] != '$')) {
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			word := strings.ToUpper(string(runes[i:j]))
			if keywords[word] {
				flush()
				cur = &clause{key: word}
				i = j
				continue
			}
		}

		buf.WriteRune(r)
		i++
	}
	flush()
	return out
}

func isWordStart(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
}

func isWordRune(r rune) bool {
	return isWordStart(r) || r >= '0' && r <= '9'
}

// splitTop splits s on a separator rune at top level (outside quotes and
// brackets).
func splitTop(s string, sep rune) []string {
	var out []string
	var buf strings.Builder
	depth := 0
	var quote rune
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if quote != 0 {
			if r == '\\' && i+1 < len(s) {
				buf.WriteByte(s[i])
				i++
				buf.WriteByte(s[i])
				continue
			}
			if r == quote {
				quote = 0
			}
			buf.WriteRune(r)
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if r == sep && depth == 0 && quote == 0 {
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
			continue
		}
		buf.WriteRune(r)
	}
	if strings.TrimSpace(buf.String()) != "" {
		out = append(out, strings.TrimSpace(buf.String()))
	}
	return out
}

// unquote strips one layer of string quoting, if present.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		body := s[1 : len(s)-1]
		body = strings.ReplaceAll(body, "\\"+string(s[0]), string(s[0]))
		body = strings.ReplaceAll(body, "\\\\", "\\")
		return body
	}
	return s
}

// unbacktick strips identifier quoting.
func unbacktick(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return strings.ReplaceAll(s[1:len(s)-1], "\\`", "`")
	}
	if len(s) >= 2 && strings.HasPrefix(s, "⟨") && strings.HasSuffix(s, "⟩") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "⟨"), "⟩")
	}
	return s
}
