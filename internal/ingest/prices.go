// Package ingest loads the per-source scraped price files and materializes
// the professional-level unified table.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
)

// Column name candidates per field, in priority order, across the scrape
// output vintages.
var (
	nameColumns  = []string{"nome", "nome_anonimizado", "name"}
	priceColumns = []string{"preco", "preco_num", "preco_raw", "price"}
	cityColumns  = []string{"cidade", "city"}
	stateColumns = []string{"uf", "estado"}
	slugColumns  = []string{"cidade_slug", "city_slug"}
	regColumns   = []string{"registro", "crp", "crm"}
)

// Stats accumulates the non-fatal drop counts of one source load, so the
// gaps are visible without aborting the run.
type Stats struct {
	Rows     int // data rows read
	Junk     int // review-count and otherwise malformed rows
	NoPrice  int // rows whose price text had no numeric content
	Loaded   int // records that survived
}

// LoadSource reads one scraped price file and tags every record with the
// given source and professional type. Rows without a parseable price are
// kept (the unified table retains them); filtering happens downstream.
func LoadSource(path string, source model.Source, ptype model.ProfessionalType) ([]model.ProfessionalRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Stats{}, fmt.Errorf("%w: %s", common.ErrMissingInput, path)
		}
		return nil, Stats{}, fmt.Errorf("failed to open price file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseSource(f, path, source, ptype)
}

// ParseSource reads price records from r. The name parameter is used only in
// error messages.
func ParseSource(r io.Reader, name string, source model.Source, ptype model.ProfessionalType) ([]model.ProfessionalRecord, Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read price file %s: %w", name, err)
	}
	if len(rows) < 1 {
		return nil, Stats{}, fmt.Errorf("%w: %s", common.ErrEmptyInput, name)
	}

	header := rows[0]

	nameIdx := findColumn(header, nameColumns)
	if nameIdx < 0 {
		return nil, Stats{}, common.NewMissingColumnError(name, "professional name", nameColumns)
	}
	priceIdx := findColumn(header, priceColumns)
	if priceIdx < 0 {
		return nil, Stats{}, common.NewMissingColumnError(name, "price", priceColumns)
	}

	cityIdx := findColumn(header, cityColumns)
	stateIdx := findColumn(header, stateColumns)
	slugIdx := findColumn(header, slugColumns)
	regIdx := findColumn(header, regColumns)

	var records []model.ProfessionalRecord
	var stats Stats

	for _, row := range rows[1:] {
		stats.Rows++

		profName := strings.TrimSpace(field(row, nameIdx))
		if profName == "" || isJunkName(profName) {
			stats.Junk++
			continue
		}

		rec := model.ProfessionalRecord{
			Name:         profName,
			Registration: strings.TrimSpace(field(row, regIdx)),
			Type:         ptype,
			Source:       source,
			RawCity:      strings.TrimSpace(field(row, cityIdx)),
			RawState:     strings.TrimSpace(field(row, stateIdx)),
			CitySlug:     strings.TrimSpace(field(row, slugIdx)),
			RawPrice:     strings.TrimSpace(field(row, priceIdx)),
		}

		if v, ok := normalize.ParsePrice(rec.RawPrice); ok {
			price := v
			rec.Price = &price
		} else {
			stats.NoPrice++
		}

		records = append(records, rec)
		stats.Loaded++
	}

	return records, stats, nil
}

// isJunkName drops the review-count rows the Doctoralia listing markup
// bleeds into the name column ("32 opiniões").
func isJunkName(name string) bool {
	return strings.Contains(strings.ToLower(name), "opini")
}

// FilterPriced keeps only records with a parsed price amount. Groups are
// formed downstream only from records surviving this filter.
func FilterPriced(records []model.ProfessionalRecord) []model.ProfessionalRecord {
	out := make([]model.ProfessionalRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasPrice() {
			out = append(out, rec)
		}
	}
	return out
}

// FilterPriceBand drops records whose price falls outside [min, max].
// Listings priced far outside the band are almost always scrape artifacts.
func FilterPriceBand(records []model.ProfessionalRecord, min, max float64) []model.ProfessionalRecord {
	out := make([]model.ProfessionalRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasPrice() {
			out = append(out, rec)
			continue
		}
		if *rec.Price < min || *rec.Price > max {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Dedupe removes duplicate listings by (name, resolved city, state, type,
// price), keeping the first occurrence. Records must be resolved first so
// that cross-source spelling variants hash identically.
func Dedupe(records []model.ProfessionalRecord) []model.ProfessionalRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.ProfessionalRecord, 0, len(records))
	for _, rec := range records {
		hash := rec.DedupHash()
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
