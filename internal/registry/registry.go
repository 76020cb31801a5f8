// Package registry loads the authoritative IBGE municipality table and
// exposes the lookups the resolver joins against.
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/normalize"
)

// Column name candidates, in priority order, across the registry file
// vintages we have seen. Detection is case-insensitive.
var (
	codeColumns     = []string{"CD_MUN", "codigo_ibge", "IBGE", "cod_mun_ibge"}
	nameColumns     = []string{"NM_MUN", "nome", "Municipio", "NM_MUNICIP"}
	stateColumns    = []string{"SIGLA_UF", "UF"}
	stateNumColumns = []string{"CD_UF", "codigo_uf"}
)

// ufByNumeric maps the numeric federative-unit code to its abbreviation.
// One entry per federative unit, including the federal district.
var ufByNumeric = map[int]string{
	11: "RO", 12: "AC", 13: "AM", 14: "RR", 15: "PA", 16: "AP", 17: "TO",
	21: "MA", 22: "PI", 23: "CE", 24: "RN", 25: "PB", 26: "PE", 27: "AL",
	28: "SE", 29: "BA",
	31: "MG", 32: "ES", 33: "RJ", 35: "SP",
	41: "PR", 42: "SC", 43: "RS",
	50: "MS", 51: "MT", 52: "GO", 53: "DF",
}

// UFFromNumeric returns the state abbreviation for a numeric federative-unit
// code, or "" when the code is unknown.
func UFFromNumeric(code int) string {
	return ufByNumeric[code]
}

type nameKey struct {
	name  string
	state string
}

// Registry is the in-memory municipality lookup structure. Immutable after
// Load.
type Registry struct {
	byKey  map[nameKey]model.Municipality
	byCode map[string]model.Municipality
}

// Load reads the municipality registry file. It fails with
// common.ErrMissingInput when the file is absent and with a
// MissingColumnError when neither the identifier column nor a usable state
// column can be detected; both are fatal for the whole run.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to open registry %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, path)
}

// Parse reads registry rows from r. The name parameter is used only in error
// messages.
func Parse(r io.Reader, name string) (*Registry, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", name, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyInput, name)
	}

	header := rows[0]

	codeIdx := findColumn(header, codeColumns)
	if codeIdx < 0 {
		return nil, common.NewMissingColumnError(name, "municipality code", codeColumns)
	}
	nameIdx := findColumn(header, nameColumns)
	if nameIdx < 0 {
		return nil, common.NewMissingColumnError(name, "municipality name", nameColumns)
	}

	stateIdx := findColumn(header, stateColumns)
	stateNumIdx := findColumn(header, stateNumColumns)
	if stateIdx < 0 && stateNumIdx < 0 {
		return nil, common.NewMissingColumnError(name, "state",
			append(append([]string{}, stateColumns...), stateNumColumns...))
	}

	reg := &Registry{
		byKey:  make(map[nameKey]model.Municipality),
		byCode: make(map[string]model.Municipality),
	}

	var skipped int
	for _, row := range rows[1:] {
		code := Code7(field(row, codeIdx))
		if code == "" {
			skipped++
			continue
		}

		displayName := strings.TrimSpace(field(row, nameIdx))

		var state string
		if stateIdx >= 0 {
			state = normalize.StateCode(field(row, stateIdx))
		} else {
			n, convErr := strconv.Atoi(strings.TrimSpace(field(row, stateNumIdx)))
			if convErr == nil {
				state = ufByNumeric[n]
			}
		}

		mun := model.Municipality{Code: code, Name: displayName, State: state}
		reg.add(mun)
	}

	if skipped > 0 {
		slog.Warn("Skipped registry rows without a usable code",
			"file", name, "skipped", skipped)
	}
	if len(reg.byCode) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyInput, name)
	}

	return reg, nil
}

// add inserts a municipality. Duplicate (normalized name, state) keys keep
// the lowest code; codes are zero-padded so lexicographic order matches
// numeric order.
func (r *Registry) add(mun model.Municipality) {
	r.byCode[mun.Code] = mun

	key := nameKey{name: normalize.Key(mun.Name), state: mun.State}
	if existing, ok := r.byKey[key]; ok && existing.Code <= mun.Code {
		return
	}
	r.byKey[key] = mun
}

// ByName looks up a municipality by normalized name and state abbreviation.
// The name must already have gone through normalize.Key.
func (r *Registry) ByName(normName, state string) (model.Municipality, bool) {
	mun, ok := r.byKey[nameKey{name: normName, state: state}]
	return mun, ok
}

// ByCode looks up a municipality by its 7-digit IBGE code.
func (r *Registry) ByCode(code string) (model.Municipality, bool) {
	mun, ok := r.byCode[Code7(code)]
	return mun, ok
}

// Len returns the number of distinct municipality codes loaded.
func (r *Registry) Len() int {
	return len(r.byCode)
}

// NameIndex returns the deduplicated (normalized name, state) entries as a
// slice sorted by code, for building join tables. Duplicate name keys have
// already been collapsed to the lowest code.
func (r *Registry) NameIndex() []model.Municipality {
	out := make([]model.Municipality, 0, len(r.byKey))
	for _, mun := range r.byKey {
		out = append(out, mun)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Code7 normalizes a municipality identifier to a fixed-width 7-digit string
// regardless of the source representation: integer, string, or a
// floating-point-looking string such as "3550308.0". Returns "" when the
// value has no leading digits.
func Code7(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return ""
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if len(v) < 7 {
		v = strings.Repeat("0", 7-len(v)) + v
	}
	return v
}

// readTable parses CSV rows, retrying with a semicolon delimiter when the
// file turns out to be single-column, the way some registry vintages ship.
func readTable(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	rows, err := parseCSV(data, ',')
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) == 1 && strings.Contains(rows[0][0], ";") {
		return parseCSV(data, ';')
	}
	return rows, nil
}

func parseCSV(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// findColumn returns the index of the first header cell matching any of the
// candidate names, compared case-insensitively after trimming.
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
