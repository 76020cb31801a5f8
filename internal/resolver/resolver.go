// Package resolver maps the (raw city, raw state) pair of a scraped record
// to a canonical municipality identity.
package resolver

import (
	"strings"

	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
	"github.com/precoterapia/precoterapia/internal/registry"
)

// Resolver resolves scraped records against the municipality registry, with
// a slug-override table taking precedence. A Resolver is a pure function of
// (record, registry, overrides); it holds no mutable state.
type Resolver struct {
	reg       *registry.Registry
	overrides Overrides
}

// New creates a Resolver over the given registry and override table.
func New(reg *registry.Registry, overrides Overrides) *Resolver {
	return &Resolver{reg: reg, overrides: overrides}
}

// Resolve produces the canonical location for one record, in priority order:
// slug override, then registry lookup on the normalized (city, state) pair,
// then the record's own raw values with no code. An unresolved location is a
// valid outcome, not an error.
func (r *Resolver) Resolve(rec *model.ProfessionalRecord) model.CanonicalLocation {
	if ov, ok := r.overrides[rec.CitySlug]; ok {
		loc := model.CanonicalLocation{DisplayName: ov.Name, State: ov.State}
		if mun, found := r.reg.ByName(normalize.Key(ov.Name), ov.State); found {
			loc.Code = mun.Code
		}
		return loc
	}

	name := normalize.Key(rec.RawCity)
	state := normalize.StateCode(rec.RawState)
	if name != "" && state != "" {
		if mun, found := r.reg.ByName(name, state); found {
			return model.CanonicalLocation{
				Code:        mun.Code,
				DisplayName: mun.Name,
				State:       mun.State,
			}
		}
	}

	// Fallback display identity: the raw values, verbatim apart from
	// trimming. Contributes to name-keyed aggregates only.
	return model.CanonicalLocation{
		DisplayName: strings.TrimSpace(rec.RawCity),
		State:       strings.ToUpper(strings.TrimSpace(rec.RawState)),
	}
}
