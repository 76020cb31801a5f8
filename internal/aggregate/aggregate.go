// Package aggregate turns resolved professional records into
// per-municipality price statistics.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
)

// AggregateHeader is the column contract of the per-municipality aggregate
// table.
var AggregateHeader = []string{
	"cidade_oficial",
	"uf_oficial",
	"cidade_norm",
	"tipo_profissional",
	"qtd_profissionais",
	"preco_medio",
	"preco_mediano",
	"preco_min",
	"preco_max",
}

type groupKey struct {
	city  string
	state string
	ptype model.ProfessionalType
}

// Compute groups records by (resolved display city, state, professional
// type) and computes count, mean, median, min and max over the price amount.
// Records without a parsed price never form or join a group. Output is
// deterministic for a fixed input multiset: rows come back sorted by state,
// city and type.
func Compute(records []model.ProfessionalRecord) []model.MunicipalityAggregate {
	groups := make(map[groupKey][]float64)
	for _, rec := range records {
		if !rec.HasPrice() {
			continue
		}
		key := groupKey{
			city:  rec.Location.DisplayName,
			state: rec.Location.State,
			ptype: rec.Type,
		}
		groups[key] = append(groups[key], *rec.Price)
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].state != keys[j].state {
			return keys[i].state < keys[j].state
		}
		if keys[i].city != keys[j].city {
			return keys[i].city < keys[j].city
		}
		return keys[i].ptype < keys[j].ptype
	})

	aggs := make([]model.MunicipalityAggregate, 0, len(keys))
	for _, key := range keys {
		prices := groups[key]
		sort.Float64s(prices)

		aggs = append(aggs, model.MunicipalityAggregate{
			City:    key.city,
			State:   key.state,
			NormKey: normalize.Key(key.city),
			Type:    key.ptype,
			Count:   len(prices),
			Mean:    mean(prices),
			Median:  median(prices),
			Min:     prices[0],
			Max:     prices[len(prices)-1],
		})
	}

	return aggs
}

func mean(sorted []float64) float64 {
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// median assumes its input is sorted. Even-sized groups average the two
// central values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Write materializes the aggregate table as CSV.
func Write(path string, aggs []model.MunicipalityAggregate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(AggregateHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, agg := range aggs {
		row := []string{
			agg.City,
			agg.State,
			agg.NormKey,
			string(agg.Type),
			strconv.Itoa(agg.Count),
			strconv.FormatFloat(agg.Mean, 'f', 2, 64),
			strconv.FormatFloat(agg.Median, 'f', 2, 64),
			strconv.FormatFloat(agg.Min, 'f', 2, 64),
			strconv.FormatFloat(agg.Max, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
