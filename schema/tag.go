package schema

import (
	"strconv"
	"strings"
)

// Tag represents a parsed "surgo" struct tag.
type Tag struct {
	Name     string
	Type     string
	Required bool
	Readonly bool
	Skip     bool

	Default       string
	DefaultAlways bool
	Value         string

	Reference string
	OnDelete  string

	Unique bool
	Index  bool

	MinLen, MaxLen *int
	Min, Max       *float64
	Pattern        string
	Enum           []string
	Assert         string

	Comment string
}

// ParseTag parses a "surgo" tag string. Entries are separated by spaces,
// semicolons or commas (commas inside parentheses or brackets are kept, so
// enum and default values may contain them).
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Skip = true
		return tag
	}

	var sb strings.Builder
	depth := 0
	for _, r := range tagStr {
		switch r {
		case '(', '[':
			depth++
			sb.WriteRune(r)
		case ')', ']':
			depth--
			sb.WriteRune(r)
		case ';', ',':
			if depth > 0 {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(' ')
			}
		default:
			sb.WriteRune(r)
		}
	}

	for _, part := range strings.Fields(sb.String()) {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(kv[0])
		var val string
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}

		switch key {
		case "name", "field":
			tag.Name = val
		case "type":
			tag.Type = val
		case "required", "notnull":
			tag.Required = true
		case "readonly":
			tag.Readonly = true
		case "unique":
			tag.Unique = true
		case "index":
			tag.Index = true
		case "default":
			tag.Default = val
		case "default_always":
			tag.Default = val
			tag.DefaultAlways = true
		case "value":
			tag.Value = val
		case "reference", "record":
			tag.Reference = val
		case "ondelete", "on_delete":
			tag.OnDelete = strings.ToLower(val)
		case "minlen":
			if n, err := strconv.Atoi(val); err == nil {
				tag.MinLen = &n
			}
		case "maxlen":
			if n, err := strconv.Atoi(val); err == nil {
				tag.MaxLen = &n
			}
		case "min":
			if n, err := strconv.ParseFloat(val, 64); err == nil {
				tag.Min = &n
			}
		case "max":
			if n, err := strconv.ParseFloat(val, 64); err == nil {
				tag.Max = &n
			}
		case "pattern":
			tag.Pattern = val
		case "enum", "in":
			val = strings.Trim(val, "()[]")
			for _, v := range strings.Split(val, ",") {
				if v = strings.TrimSpace(v); v != "" {
					tag.Enum = append(tag.Enum, v)
				}
			}
		case "assert":
			tag.Assert = val
		case "comment":
			tag.Comment = val
		}
	}
	return tag
}
