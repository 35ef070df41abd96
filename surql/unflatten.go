package surql

import (
	"sort"
	"strings"

	"github.com/corvids/surgo/schema"
)

// SplitPath splits a flattened field path into segments. Both wildcard
// spellings are understood: "a[*].b" and "a.*.b" produce ["a", "*", "b"].
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, "[*]", ".*")
	var segs []string
	for _, s := range strings.Split(path, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		segs = append(segs, unbacktick(s))
	}
	return segs
}

// Unflatten reverses the compiler's path flattening: a map of raw field
// definitions keyed by flattened path becomes a nested descriptor tree.
// Paths may arrive in any order; intermediate containers are created lazily
// on first reference, and a later explicit definition for a container merges
// into the placeholder instead of replacing its children.
func Unflatten(raws map[string]string) []*schema.Field {
	paths := make([]string, 0, len(raws))
	for p := range raws {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var top []*schema.Field
	for _, p := range paths {
		path, parsed, err := ParseField(raws[p])
		if err != nil {
			// Definitions we cannot even locate a path for are skipped;
			// the plan will recreate them from the desired schema.
			continue
		}
		_ = path
		insertField(&top, SplitPath(p), parsed)
	}
	return top
}

func insertField(fields *[]*schema.Field, segs []string, leaf *schema.Field) {
	if len(segs) == 0 {
		return
	}

	cur := fields
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]
		if seg == "*" {
			// Wildcard descends into the element descriptor of the
			// enclosing array field, which insertNode just returned.
			continue
		}

		node := findOrCreate(cur, seg)
		if segs[i+1] == "*" {
			if node.Type != schema.TypeArray {
				node.Type = schema.TypeArray
			}
			if node.Elem == nil || node.Elem.Type != schema.TypeObject {
				node.Elem = &schema.Field{Type: schema.TypeObject, Required: true}
			}
			cur = &node.Elem.Fields
		} else {
			if node.Type != schema.TypeObject {
				node.Type = schema.TypeObject
			}
			cur = &node.Fields
		}
	}

	last := segs[len(segs)-1]
	if last == "*" {
		// A bare "a[*]" definition describes the array element itself.
		return
	}
	leaf.Name = last
	if existing := find(*cur, last); existing != nil {
		mergeField(existing, leaf)
		return
	}
	*cur = append(*cur, leaf)
}

func find(fields []*schema.Field, name string) *schema.Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func findOrCreate(fields *[]*schema.Field, name string) *schema.Field {
	if f := find(*fields, name); f != nil {
		return f
	}
	f := &schema.Field{Name: name, Type: schema.TypeObject, Required: true}
	*fields = append(*fields, f)
	return f
}

// mergeField copies the parsed aspects of src onto dst while keeping dst's
// already-attached children (and element descriptor, if src brings none).
func mergeField(dst, src *schema.Field) {
	children := dst.Fields
	elem := dst.Elem

	*dst = *src
	dst.Fields = children
	if dst.Elem == nil {
		dst.Elem = elem
	} else if elem != nil && len(elem.Fields) > 0 && len(dst.Elem.Fields) == 0 {
		dst.Elem.Fields = elem.Fields
	}
}
