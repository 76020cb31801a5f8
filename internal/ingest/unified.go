package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
)

// UnifiedHeader is the column contract of the professional-level unified
// table. Consumers depend on these names, not on column positions.
var UnifiedHeader = []string{
	"nome",
	"registro",
	"tipo_profissional",
	"preco",
	"cidade_oficial",
	"uf_oficial",
	"cod_mun_ibge",
	"fonte",
	"cidade_slug",
	"cidade_norm",
}

// WriteUnified materializes resolved records as the unified table.
// Intermediate directories are created automatically.
func WriteUnified(path string, records []model.ProfessionalRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(UnifiedHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		price := ""
		if rec.Price != nil {
			price = strconv.FormatFloat(*rec.Price, 'f', 2, 64)
		}
		row := []string{
			rec.Name,
			rec.Registration,
			string(rec.Type),
			price,
			rec.Location.DisplayName,
			rec.Location.State,
			rec.Location.Code,
			string(rec.Source),
			rec.CitySlug,
			normalize.Key(rec.Location.DisplayName),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
