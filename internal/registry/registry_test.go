package registry

import (
	"strings"
	"testing"

	"github.com/precoterapia/precoterapia/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModernHeader(t *testing.T) {
	input := `CD_MUN,NM_MUN,SIGLA_UF
3550308,São Paulo,SP
3304557,Rio de Janeiro,RJ
1100205,Porto Velho,RO
`
	reg, err := Parse(strings.NewReader(input), "municipios.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	mun, ok := reg.ByName("sao paulo", "SP")
	require.True(t, ok)
	assert.Equal(t, "3550308", mun.Code)
	assert.Equal(t, "São Paulo", mun.Name)

	mun, ok = reg.ByCode("3304557")
	require.True(t, ok)
	assert.Equal(t, "RJ", mun.State)
}

func TestParseLegacyHeaderWithNumericUF(t *testing.T) {
	input := `codigo_ibge,nome,codigo_uf
3550308,São Paulo,35
5300108,Brasília,53
`
	reg, err := Parse(strings.NewReader(input), "municipios.csv")
	require.NoError(t, err)

	mun, ok := reg.ByName("brasilia", "DF")
	require.True(t, ok)
	assert.Equal(t, "5300108", mun.Code)

	mun, ok = reg.ByName("sao paulo", "SP")
	require.True(t, ok)
	assert.Equal(t, "3550308", mun.Code)
}

func TestParseSemicolonDelimited(t *testing.T) {
	input := "CD_MUN;NM_MUN;SIGLA_UF\n3550308;São Paulo;SP\n"
	reg, err := Parse(strings.NewReader(input), "municipios.csv")
	require.NoError(t, err)

	_, ok := reg.ByName("sao paulo", "SP")
	assert.True(t, ok)
}

func TestParseMissingCodeColumn(t *testing.T) {
	input := `nome,SIGLA_UF
São Paulo,SP
`
	_, err := Parse(strings.NewReader(input), "municipios.csv")
	require.Error(t, err)

	var missing *common.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "municipios.csv", missing.File)
	assert.Equal(t, "municipality code", missing.Column)
}

func TestParseMissingStateColumns(t *testing.T) {
	input := `CD_MUN,NM_MUN
3550308,São Paulo
`
	_, err := Parse(strings.NewReader(input), "municipios.csv")

	var missing *common.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "state", missing.Column)
}

func TestDuplicateNameTieBreak(t *testing.T) {
	// Same normalized name and state with two codes: the lowest code must
	// win regardless of row order.
	forward := `CD_MUN,NM_MUN,SIGLA_UF
4100103,Abatiá,PR
4100104,Abatia,PR
`
	backward := `CD_MUN,NM_MUN,SIGLA_UF
4100104,Abatia,PR
4100103,Abatiá,PR
`
	for _, input := range []string{forward, backward} {
		reg, err := Parse(strings.NewReader(input), "municipios.csv")
		require.NoError(t, err)

		mun, ok := reg.ByName("abatia", "PR")
		require.True(t, ok)
		assert.Equal(t, "4100103", mun.Code)
	}
}

func TestCode7(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3550308", "3550308"},
		{"3550308.0", "3550308"},
		{" 120040 ", "0120040"},
		{"42", "0000042"},
		{"", ""},
		{"n/a", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Code7(tt.input), "Code7(%q)", tt.input)
	}
}

func TestCode7AlwaysSevenDigits(t *testing.T) {
	input := `CD_MUN,NM_MUN,SIGLA_UF
3550308,São Paulo,SP
120040.0,Rio Branco,AC
42,Lugar Nenhum,SC
`
	reg, err := Parse(strings.NewReader(input), "municipios.csv")
	require.NoError(t, err)

	for _, name := range []string{"sao paulo", "rio branco", "lugar nenhum"} {
		var state string
		switch name {
		case "sao paulo":
			state = "SP"
		case "rio branco":
			state = "AC"
		default:
			state = "SC"
		}
		mun, ok := reg.ByName(name, state)
		require.True(t, ok, name)
		assert.Len(t, mun.Code, 7)
	}
}

func TestUFFromNumeric(t *testing.T) {
	assert.Equal(t, "SP", UFFromNumeric(35))
	assert.Equal(t, "DF", UFFromNumeric(53))
	assert.Equal(t, "", UFFromNumeric(99))
}
