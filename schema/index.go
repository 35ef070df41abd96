package schema

// Search configures a full-text search index: analyzer name, BM25 ranking
// parameters and result highlighting. K1 and B are independently optional.
type Search struct {
	Analyzer   string
	K1, B      *float64
	Highlights bool
}

// Equal reports structural equality of search configurations.
func (s *Search) Equal(o *Search) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Analyzer == o.Analyzer &&
		floatPtrEqual(s.K1, o.K1) &&
		floatPtrEqual(s.B, o.B) &&
		s.Highlights == o.Highlights
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Index describes a table index. Field order matters for composite indexes.
// Unique and Search are mutually exclusive in practice.
type Index struct {
	Name   string
	Fields []string
	Unique bool
	Search *Search
}
