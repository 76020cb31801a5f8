package model

import (
	"crypto/sha256"
	"fmt"
)

// ProfessionalType identifies the kind of professional a listing is for.
type ProfessionalType string

const (
	// TypePsychologist is a psychology listing.
	TypePsychologist ProfessionalType = "psicologo"
	// TypePsychiatrist is a psychiatry listing.
	TypePsychiatrist ProfessionalType = "psiquiatra"
	// TypePsychotherapist is a psychotherapy listing.
	TypePsychotherapist ProfessionalType = "psicoterapeuta"
)

// Source identifies which listing site a record was scraped from.
type Source string

const (
	// SourceDoctoralia is the Doctoralia listing site.
	SourceDoctoralia Source = "doctoralia"
	// SourceBoaConsulta is the BoaConsulta listing site.
	SourceBoaConsulta Source = "boaconsulta"
)

// ProfessionalRecord represents a single scraped listing from any source.
// Immutable once written to the intermediate file.
type ProfessionalRecord struct {
	Name         string
	Registration string // CRP or CRM, whichever the source carries
	Type         ProfessionalType
	Source       Source
	RawCity      string // city text as scraped
	RawState     string // 2-letter UF, possibly absent
	CitySlug     string // scrape-time city slug, possibly absent
	RawPrice     string // price text as scraped
	Price        *float64
	Location     CanonicalLocation // filled by the resolver
}

// HasPrice reports whether the record carries a parsed price amount.
func (r *ProfessionalRecord) HasPrice() bool {
	return r.Price != nil
}

// DedupHash creates a hash for duplicate detection across sources. Two
// listings for the same person in the same city at the same price count once.
func (r *ProfessionalRecord) DedupHash() string {
	var price float64
	if r.Price != nil {
		price = *r.Price
	}
	data := fmt.Sprintf("%s:%s:%s:%s:%.2f",
		r.Name,
		r.Location.DisplayName,
		r.Location.State,
		r.Type,
		price)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
