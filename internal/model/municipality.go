package model

// Municipality is one row of the authoritative IBGE registry.
type Municipality struct {
	Code  string // 7-digit zero-padded IBGE code
	Name  string // display name, accented
	State string // 2-letter UF abbreviation
}

// CanonicalLocation is the resolved identity for a scraped record. Code is
// empty when the resolver found no registry match; the display name and
// state then fall back to the record's raw values.
type CanonicalLocation struct {
	Code        string
	DisplayName string
	State       string
}

// Resolved reports whether the location carries an IBGE code. Unresolved
// locations still contribute to name-keyed aggregates but cannot be joined
// to code-keyed external indicators.
func (l CanonicalLocation) Resolved() bool {
	return l.Code != ""
}
