package resolver

import (
	"strings"
	"testing"

	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/precoterapia/precoterapia/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	input := `CD_MUN,NM_MUN,SIGLA_UF
3550308,São Paulo,SP
3304557,Rio de Janeiro,RJ
3106200,Belo Horizonte,MG
4314902,Porto Alegre,RS
`
	reg, err := registry.Parse(strings.NewReader(input), "municipios.csv")
	require.NoError(t, err)
	return reg
}

func TestResolveSlugOverridePrecedence(t *testing.T) {
	r := New(testRegistry(t), DefaultOverrides())

	// The record's raw text is garbage on purpose: the slug must win.
	rec := &model.ProfessionalRecord{
		CitySlug: "sao-paulo-sp",
		RawCity:  "Sumaré",
		RawState: "MG",
	}

	loc := r.Resolve(rec)
	assert.Equal(t, "São Paulo", loc.DisplayName)
	assert.Equal(t, "SP", loc.State)
	assert.Equal(t, "3550308", loc.Code)
	assert.True(t, loc.Resolved())
}

func TestResolveRegistryFallback(t *testing.T) {
	r := New(testRegistry(t), DefaultOverrides())

	tests := []struct {
		name     string
		city     string
		state    string
		wantCity string
		wantCode string
	}{
		{
			name:     "exact casing",
			city:     "Rio de Janeiro",
			state:    "RJ",
			wantCity: "Rio de Janeiro",
			wantCode: "3304557",
		},
		{
			name:     "lowercase unaccented collapses to the same identity",
			city:     "sao paulo",
			state:    "sp",
			wantCity: "São Paulo",
			wantCode: "3550308",
		},
		{
			name:     "extra whitespace",
			city:     "  Belo   Horizonte ",
			state:    " mg ",
			wantCity: "Belo Horizonte",
			wantCode: "3106200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &model.ProfessionalRecord{RawCity: tt.city, RawState: tt.state}
			loc := r.Resolve(rec)
			assert.Equal(t, tt.wantCity, loc.DisplayName)
			assert.Equal(t, tt.wantCode, loc.Code)
		})
	}
}

func TestResolveUnresolvedKeepsRawIdentity(t *testing.T) {
	r := New(testRegistry(t), DefaultOverrides())

	rec := &model.ProfessionalRecord{RawCity: "Atlântida do Sul", RawState: "rs"}
	loc := r.Resolve(rec)

	assert.False(t, loc.Resolved())
	assert.Empty(t, loc.Code)
	assert.Equal(t, "Atlântida do Sul", loc.DisplayName)
	assert.Equal(t, "RS", loc.State)
}

func TestResolveMissingState(t *testing.T) {
	r := New(testRegistry(t), DefaultOverrides())

	// Without a usable UF there is no registry lookup to attempt.
	rec := &model.ProfessionalRecord{RawCity: "São Paulo"}
	loc := r.Resolve(rec)

	assert.False(t, loc.Resolved())
	assert.Equal(t, "São Paulo", loc.DisplayName)
}

func TestOverridesMerge(t *testing.T) {
	base := DefaultOverrides()
	merged := base.Merge(Overrides{
		"sao-paulo-sp": {Name: "Sao Paulo Custom", State: "SP"},
		"curitiba-pr":  {Name: "Curitiba", State: "PR"},
	})

	assert.Equal(t, "Sao Paulo Custom", merged["sao-paulo-sp"].Name)
	assert.Equal(t, "Curitiba", merged["curitiba-pr"].Name)
	// The base table is untouched.
	assert.Equal(t, "São Paulo", base["sao-paulo-sp"].Name)
}
