package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseSourceDoctoralia(t *testing.T) {
	input := `nome,crp,preco,cidade,uf,cidade_slug
Ana L.,CRP 06/1234,R$ 200,São Paulo,SP,sao-paulo-sp
32 opiniões,,R$ 150,São Paulo,SP,sao-paulo-sp
Bruno M.,CRP 06/9999,a combinar,São Paulo,SP,sao-paulo-sp
`
	records, stats, err := ParseSource(strings.NewReader(input), "doctoralia_psicologos.csv",
		model.SourceDoctoralia, model.TypePsychologist)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Junk)
	assert.Equal(t, 1, stats.NoPrice)
	require.Len(t, records, 2)

	ana := records[0]
	assert.Equal(t, "Ana L.", ana.Name)
	assert.Equal(t, "CRP 06/1234", ana.Registration)
	assert.Equal(t, model.SourceDoctoralia, ana.Source)
	assert.Equal(t, model.TypePsychologist, ana.Type)
	require.NotNil(t, ana.Price)
	assert.InDelta(t, 200, *ana.Price, 0.001)
	assert.Equal(t, "sao-paulo-sp", ana.CitySlug)

	// "a combinar" must be an absent price, never zero.
	assert.Nil(t, records[1].Price)
}

func TestParseSourceRegistrationVariants(t *testing.T) {
	// BoaConsulta psychiatrist files carry crm instead of crp.
	input := `nome,crm,preco,cidade,uf
Carla S.,CRM 12345,R$ 350,Salvador,BA
`
	records, _, err := ParseSource(strings.NewReader(input), "psiquiatras.csv",
		model.SourceBoaConsulta, model.TypePsychiatrist)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CRM 12345", records[0].Registration)
}

func TestParseSourceMissingPriceColumn(t *testing.T) {
	input := `nome,cidade,uf
Ana L.,São Paulo,SP
`
	_, _, err := ParseSource(strings.NewReader(input), "broken.csv",
		model.SourceDoctoralia, model.TypePsychologist)

	var missing *common.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "price", missing.Column)
}

func TestLoadSourceMissingFile(t *testing.T) {
	_, _, err := LoadSource(filepath.Join(t.TempDir(), "nope.csv"),
		model.SourceDoctoralia, model.TypePsychologist)
	assert.ErrorIs(t, err, common.ErrMissingInput)
}

func TestFilterPriced(t *testing.T) {
	records := []model.ProfessionalRecord{
		{Name: "a", Price: floatPtr(100)},
		{Name: "b"},
		{Name: "c", Price: floatPtr(250)},
	}

	priced := FilterPriced(records)
	require.Len(t, priced, 2)
	assert.Equal(t, "a", priced[0].Name)
	assert.Equal(t, "c", priced[1].Name)
}

func TestFilterPriceBand(t *testing.T) {
	records := []model.ProfessionalRecord{
		{Name: "ok", Price: floatPtr(200)},
		{Name: "too-low", Price: floatPtr(5)},
		{Name: "too-high", Price: floatPtr(12000)},
		{Name: "unpriced"},
	}

	out := FilterPriceBand(records, 50, 1000)
	require.Len(t, out, 2)
	assert.Equal(t, "ok", out[0].Name)
	assert.Equal(t, "unpriced", out[1].Name)
}

func TestDedupeAcrossSources(t *testing.T) {
	loc := model.CanonicalLocation{Code: "3550308", DisplayName: "São Paulo", State: "SP"}

	records := []model.ProfessionalRecord{
		{Name: "Ana L.", Type: model.TypePsychologist, Source: model.SourceDoctoralia, Location: loc, Price: floatPtr(200)},
		{Name: "Ana L.", Type: model.TypePsychologist, Source: model.SourceBoaConsulta, Location: loc, Price: floatPtr(200)},
		{Name: "Ana L.", Type: model.TypePsychologist, Source: model.SourceBoaConsulta, Location: loc, Price: floatPtr(250)},
	}

	out := Dedupe(records)
	require.Len(t, out, 2)
	// First occurrence wins.
	assert.Equal(t, model.SourceDoctoralia, out[0].Source)
}

func TestWriteUnified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dados_precos_unificados.csv")

	records := []model.ProfessionalRecord{
		{
			Name:     "Ana L.",
			Type:     model.TypePsychologist,
			Source:   model.SourceDoctoralia,
			CitySlug: "sao-paulo-sp",
			Price:    floatPtr(199.9),
			Location: model.CanonicalLocation{Code: "3550308", DisplayName: "São Paulo", State: "SP"},
		},
		{
			Name:     "Beatriz Q.",
			Type:     model.TypePsychiatrist,
			Source:   model.SourceBoaConsulta,
			Location: model.CanonicalLocation{DisplayName: "Atlântida do Sul", State: "RS"},
		},
	}

	require.NoError(t, WriteUnified(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, UnifiedHeader, rows[0])

	assert.Equal(t, "199.90", rows[1][3])
	assert.Equal(t, "3550308", rows[1][6])
	assert.Equal(t, "sao paulo", rows[1][9])

	// Unresolved record: empty code and price, row still present.
	assert.Equal(t, "", rows[2][3])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "atlantida do sul", rows[2][9])
}
