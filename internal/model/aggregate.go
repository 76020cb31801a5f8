package model

// MunicipalityAggregate is one row per (resolved city, state, professional
// type): the five summary statistics over parsed prices. Recomputed on every
// pipeline run, never updated incrementally.
type MunicipalityAggregate struct {
	City     string // resolved display name
	State    string
	NormKey  string // normalized city name, used for the registry join later
	Type     ProfessionalType
	Count    int
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
}

// CaseCount is one notification-count row per (municipality, year), after
// the CID-10 prefix filter.
type CaseCount struct {
	Code  string // 7-digit IBGE code
	Year  int
	Cases int
}

// FacilityCount is the number of CAPS facilities in one municipality.
type FacilityCount struct {
	Code  string // 7-digit IBGE code
	State string
	Name  string
	Count int
}
