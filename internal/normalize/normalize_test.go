package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips diacritics",
			input: "São Paulo",
			want:  "sao paulo",
		},
		{
			name:  "lowercases and trims",
			input: "  BELO HORIZONTE  ",
			want:  "belo horizonte",
		},
		{
			name:  "collapses internal whitespace",
			input: "rio  de \t janeiro",
			want:  "rio de janeiro",
		},
		{
			name:  "cedilla and tilde",
			input: "Conceição do Araguaia",
			want:  "conceicao do araguaia",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.input))
		})
	}
}

func TestKeyIdempotent(t *testing.T) {
	inputs := []string{"São Paulo", "Florianópolis", "  Várzea   Grande ", "brasilia"}
	for _, in := range inputs {
		once := Key(in)
		assert.Equal(t, once, Key(once), "Key must be idempotent for %q", in)
	}
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sp", "SP"},
		{" rj ", "RJ"},
		{"MG", "MG"},
		{"", ""},
		{"S", ""},
		{"São Paulo", ""},
		{"12", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateCode(tt.input), "StateCode(%q)", tt.input)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{
			name:   "full brazilian format",
			input:  "R$ 1.234,56",
			want:   1234.56,
			wantOK: true,
		},
		{
			name:   "no numeric content",
			input:  "a combinar",
			wantOK: false,
		},
		{
			name:   "plain integer",
			input:  "R$ 180",
			want:   180,
			wantOK: true,
		},
		{
			name:   "comma decimal without thousands",
			input:  "180,50",
			want:   180.5,
			wantOK: true,
		},
		{
			name:   "dot as thousands separator",
			input:  "R$ 1.200",
			want:   1200,
			wantOK: true,
		},
		{
			name:   "dot as decimal point",
			input:  "180.5",
			want:   180.5,
			wantOK: true,
		},
		{
			name:   "non-breaking space after currency sign",
			input:  "R$ 250",
			want:   250,
			wantOK: true,
		},
		{
			name:   "empty string",
			input:  "",
			wantOK: false,
		},
		{
			name:   "consultar valores",
			input:  "Consultar valores",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}
