package join

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/registry"
	"golang.org/x/text/encoding/charmap"
)

// Column name candidates for the DATASUS notification files and the CAPS
// facility table, in priority order.
var (
	notifCodeColumns = []string{"ID_MUNICIP", "ID_MN_RESI", "cod_mun_ibge"}
	notifDiagColumns = []string{"DIAG_ESP", "CID", "DIAG"}
	notifYearColumns = []string{"NU_ANO", "ANO", "ano"}

	capsCodeColumns  = []string{"IBGE", "CD_MUN", "cod_mun_ibge"}
	capsCountColumns = []string{"Qtd_caps", "qtd_caps", "quantidade"}
)

// DefaultDiagnosisPrefixes is the CID-10 prefix set kept by the notification
// filter: depressive episodes (F32) and anxiety disorders (F41). A
// configuration constant, not a derived value.
var DefaultDiagnosisPrefixes = []string{"F32", "F41"}

// LoadNotifications reads the yearly notification files, keeps only rows
// whose diagnosis code starts with one of the given prefixes, and counts
// cases per (municipality, year). Files are expected in DATASUS latin-1
// encoding. A file without a year column gets its year from the two-digit
// filename suffix ("MENTBR23.csv" is 2023).
func LoadNotifications(paths []string, prefixes []string) ([]model.CaseCount, error) {
	if len(prefixes) == 0 {
		prefixes = DefaultDiagnosisPrefixes
	}

	counts := make(map[model.CaseCount]int)
	var loaded int

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", common.ErrMissingInput, path)
			}
			return nil, fmt.Errorf("failed to open notification file %s: %w", path, err)
		}

		err = countNotifications(charmap.ISO8859_1.NewDecoder().Reader(f), path, prefixes, counts)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("%w: no notification files given", common.ErrMissingInput)
	}

	out := make([]model.CaseCount, 0, len(counts))
	for key, n := range counts {
		key.Cases = n
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func countNotifications(r io.Reader, path string, prefixes []string, counts map[model.CaseCount]int) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read notification file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("%w: %s", common.ErrEmptyInput, path)
	}

	header := rows[0]

	codeIdx := findColumn(header, notifCodeColumns)
	if codeIdx < 0 {
		return common.NewMissingColumnError(path, "municipality code", notifCodeColumns)
	}
	diagIdx := findColumn(header, notifDiagColumns)
	if diagIdx < 0 {
		return common.NewMissingColumnError(path, "diagnosis code", notifDiagColumns)
	}

	yearIdx := findColumn(header, notifYearColumns)
	fileYear := yearFromFilename(path)

	var kept, total int
	for _, row := range rows[1:] {
		total++

		diag := strings.ToUpper(strings.TrimSpace(field(row, diagIdx)))
		if !hasAnyPrefix(diag, prefixes) {
			continue
		}

		code := registry.Code7(field(row, codeIdx))
		if code == "" {
			continue
		}

		year := fileYear
		if yearIdx >= 0 {
			if y, convErr := strconv.Atoi(strings.TrimSpace(field(row, yearIdx))); convErr == nil {
				year = y
			}
		}
		if year == 0 {
			continue
		}

		counts[model.CaseCount{Code: code, Year: year}]++
		kept++
	}

	slog.Info("Filtered notification file",
		"file", filepath.Base(path), "kept", kept, "total", total)
	return nil
}

func hasAnyPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// yearFromFilename derives a year from the trailing two digits of a DATASUS
// filename such as MENTBR23.csv. Returns 0 when no digits are found.
func yearFromFilename(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(base) < 2 {
		return 0
	}
	suffix := base[len(base)-2:]
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0
	}
	return 2000 + n
}

// LoadFacilities reads the CAPS facility-count table, latin-1 encoded, keyed
// by 7-digit IBGE code. Counts that fail to parse count as zero.
func LoadFacilities(path string) ([]model.FacilityCount, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to open facility file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read facility file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyInput, path)
	}

	header := rows[0]
	codeIdx := findColumn(header, capsCodeColumns)
	if codeIdx < 0 {
		return nil, common.NewMissingColumnError(path, "municipality code", capsCodeColumns)
	}
	countIdx := findColumn(header, capsCountColumns)
	if countIdx < 0 {
		return nil, common.NewMissingColumnError(path, "facility count", capsCountColumns)
	}
	stateIdx := findColumn(header, []string{"UF", "uf"})
	nameIdx := findColumn(header, []string{"Municipio", "Município", "NM_MUN"})

	var out []model.FacilityCount
	for _, row := range rows[1:] {
		code := registry.Code7(field(row, codeIdx))
		if code == "" {
			continue
		}
		out = append(out, model.FacilityCount{
			Code:  code,
			State: strings.TrimSpace(field(row, stateIdx)),
			Name:  strings.TrimSpace(field(row, nameIdx)),
			Count: parseCount(field(row, countIdx)),
		})
	}

	return out, nil
}

func parseCount(v string) int {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if fv, err := strconv.ParseFloat(v, 64); err == nil {
		return int(fv)
	}
	return 0
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
