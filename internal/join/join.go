// Package join attaches external per-municipality indicators to the price
// aggregate table. All joins are left joins keyed on the 7-digit IBGE code,
// never on names; aggregates without a code keep empty indicator fields
// instead of being dropped.
package join

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
	"github.com/precoterapia/precoterapia/internal/registry"
)

type nameIndexRow struct {
	NormKey string `dataframe:"cidade_norm"`
	State   string `dataframe:"uf_oficial"`
	Code    string `dataframe:"cod_mun_ibge"`
}

type caseRow struct {
	Code  string `dataframe:"cod_mun_ibge"`
	Year  int    `dataframe:"ano"`
	Cases int    `dataframe:"casos_f32_f41"`
}

type caseTotalRow struct {
	Code  string `dataframe:"cod_mun_ibge"`
	Cases int    `dataframe:"casos_f32_f41_total"`
}

type facilityRow struct {
	Code  string `dataframe:"cod_mun_ibge"`
	Count int    `dataframe:"qtd_caps"`
}

// ReadAggregates loads the per-municipality aggregate table produced by the
// unify stage.
func ReadAggregates(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s (run unify first)", common.ErrMissingInput, path)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to open aggregate table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return df, fmt.Errorf("failed to read aggregate table %s: %w", path, df.Err)
	}

	for _, col := range []string{"cidade_norm", "uf_oficial"} {
		if !hasColumn(df, col) {
			return df, common.NewMissingColumnError(path, col, []string{col})
		}
	}
	return df, nil
}

// AttachCodes left-joins the aggregate table against the registry's
// deduplicated name index on (cidade_norm, uf_oficial), adding the
// cod_mun_ibge column. Unmatched rows keep an empty code.
func AttachCodes(aggs dataframe.DataFrame, reg *registry.Registry) (dataframe.DataFrame, error) {
	index := reg.NameIndex()
	rows := make([]nameIndexRow, 0, len(index))
	for _, mun := range index {
		rows = append(rows, nameIndexRow{
			NormKey: normalize.Key(mun.Name),
			State:   mun.State,
			Code:    mun.Code,
		})
	}

	regDF := dataframe.LoadStructs(rows)
	if regDF.Err != nil {
		return regDF, fmt.Errorf("failed to build registry frame: %w", regDF.Err)
	}

	merged := aggs.LeftJoin(regDF, "cidade_norm", "uf_oficial")
	if merged.Err != nil {
		return merged, fmt.Errorf("failed to attach codes: %w", merged.Err)
	}
	return merged, nil
}

// Timeseries joins case counts per (municipality, year): aggregate rows
// multiply, one per year with data, for time-series consumers. Facility
// counts are attached per municipality. Pass nil facilities to skip that
// join.
func Timeseries(aggs dataframe.DataFrame, reg *registry.Registry, cases []model.CaseCount, facilities []model.FacilityCount) (dataframe.DataFrame, error) {
	merged, err := AttachCodes(aggs, reg)
	if err != nil {
		return merged, err
	}

	if len(cases) > 0 {
		rows := make([]caseRow, 0, len(cases))
		for _, c := range cases {
			rows = append(rows, caseRow{Code: c.Code, Year: c.Year, Cases: c.Cases})
		}
		caseDF := dataframe.LoadStructs(rows)
		if caseDF.Err != nil {
			return caseDF, fmt.Errorf("failed to build case frame: %w", caseDF.Err)
		}
		merged = merged.LeftJoin(caseDF, "cod_mun_ibge")
		if merged.Err != nil {
			return merged, fmt.Errorf("failed to join case counts: %w", merged.Err)
		}
	}

	return attachFacilities(merged, facilities)
}

// Snapshot collapses case counts to a single sum across years before
// joining, one row per municipality, for cross-sectional consumers. A
// distinct operation from Timeseries on purpose: the two produce different
// output shapes.
func Snapshot(aggs dataframe.DataFrame, reg *registry.Registry, cases []model.CaseCount, facilities []model.FacilityCount) (dataframe.DataFrame, error) {
	merged, err := AttachCodes(aggs, reg)
	if err != nil {
		return merged, err
	}

	if len(cases) > 0 {
		totals := make(map[string]int)
		order := make([]string, 0)
		for _, c := range cases {
			if _, seen := totals[c.Code]; !seen {
				order = append(order, c.Code)
			}
			totals[c.Code] += c.Cases
		}

		rows := make([]caseTotalRow, 0, len(order))
		for _, code := range order {
			rows = append(rows, caseTotalRow{Code: code, Cases: totals[code]})
		}
		caseDF := dataframe.LoadStructs(rows)
		if caseDF.Err != nil {
			return caseDF, fmt.Errorf("failed to build case frame: %w", caseDF.Err)
		}
		merged = merged.LeftJoin(caseDF, "cod_mun_ibge")
		if merged.Err != nil {
			return merged, fmt.Errorf("failed to join case totals: %w", merged.Err)
		}
	}

	return attachFacilities(merged, facilities)
}

func attachFacilities(df dataframe.DataFrame, facilities []model.FacilityCount) (dataframe.DataFrame, error) {
	if len(facilities) == 0 {
		return df, nil
	}

	rows := make([]facilityRow, 0, len(facilities))
	for _, fc := range facilities {
		rows = append(rows, facilityRow{Code: fc.Code, Count: fc.Count})
	}
	capsDF := dataframe.LoadStructs(rows)
	if capsDF.Err != nil {
		return capsDF, fmt.Errorf("failed to build facility frame: %w", capsDF.Err)
	}

	joined := df.LeftJoin(capsDF, "cod_mun_ibge")
	if joined.Err != nil {
		return joined, fmt.Errorf("failed to join facility counts: %w", joined.Err)
	}
	return joined, nil
}

// WriteTable materializes a joined frame as CSV. Cells gota marks as NaN
// (unmatched left-join fields) come out empty, which is what downstream
// consumers expect for a null.
func WriteTable(path string, df dataframe.DataFrame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	for _, row := range df.Records() {
		for i, cell := range row {
			if cell == "NaN" {
				row[i] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, col := range df.Names() {
		if col == name {
			return true
		}
	}
	return false
}
