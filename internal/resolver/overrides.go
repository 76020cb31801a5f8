package resolver

// Override is the exact (display name, state) pair a scrape-time city slug
// maps to. Slugs are unambiguous by construction, so an override beats
// whatever city text the record carries.
type Override struct {
	Name  string
	State string
}

// Overrides maps city slugs to their canonical pair. Built once at startup
// and passed explicitly into the Resolver; never mutated afterwards.
type Overrides map[string]Override

// DefaultOverrides returns the curated slug table for the city slugs the
// scrapers were run with.
func DefaultOverrides() Overrides {
	return Overrides{
		"sao-paulo-sp":         {Name: "São Paulo", State: "SP"},
		"sao-paulo":            {Name: "São Paulo", State: "SP"},
		"rio-de-janeiro-rj":    {Name: "Rio de Janeiro", State: "RJ"},
		"rio-de-janeiro":       {Name: "Rio de Janeiro", State: "RJ"},
		"belo-horizonte-mg":    {Name: "Belo Horizonte", State: "MG"},
		"belo-horizonte":       {Name: "Belo Horizonte", State: "MG"},
		"porto-alegre-rs":      {Name: "Porto Alegre", State: "RS"},
		"porto-alegre":         {Name: "Porto Alegre", State: "RS"},
		"salvador-ba":          {Name: "Salvador", State: "BA"},
		"salvador":             {Name: "Salvador", State: "BA"},
	}
}

// Merge returns a new table containing the receiver's entries with extra
// entries layered on top. Extra entries win on slug collisions.
func (o Overrides) Merge(extra Overrides) Overrides {
	merged := make(Overrides, len(o)+len(extra))
	for slug, ov := range o {
		merged[slug] = ov
	}
	for slug, ov := range extra {
		merged[slug] = ov
	}
	return merged
}
