package aggregate

import (
	"math/rand"
	"testing"

	"github.com/precoterapia/precoterapia/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(city, state string, ptype model.ProfessionalType, price float64) model.ProfessionalRecord {
	return model.ProfessionalRecord{
		Type:     ptype,
		Price:    &price,
		Location: model.CanonicalLocation{DisplayName: city, State: state},
	}
}

func TestComputeCollapsesTextualVariants(t *testing.T) {
	// Two sources spelling São Paulo differently have already been resolved
	// to the same display identity; one group must come out.
	records := []model.ProfessionalRecord{
		rec("São Paulo", "SP", model.TypePsychologist, 100),
		rec("São Paulo", "SP", model.TypePsychologist, 200),
		rec("São Paulo", "SP", model.TypePsychologist, 300),
	}

	aggs := Compute(records)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.Equal(t, "São Paulo", agg.City)
	assert.Equal(t, "sao paulo", agg.NormKey)
	assert.Equal(t, 3, agg.Count)
	assert.InDelta(t, 200, agg.Mean, 0.001)
	assert.InDelta(t, 200, agg.Median, 0.001)
	assert.InDelta(t, 100, agg.Min, 0.001)
	assert.InDelta(t, 300, agg.Max, 0.001)
}

func TestComputeMedianEvenGroup(t *testing.T) {
	records := []model.ProfessionalRecord{
		rec("Salvador", "BA", model.TypePsychiatrist, 100),
		rec("Salvador", "BA", model.TypePsychiatrist, 150),
		rec("Salvador", "BA", model.TypePsychiatrist, 300),
		rec("Salvador", "BA", model.TypePsychiatrist, 400),
	}

	aggs := Compute(records)
	require.Len(t, aggs, 1)
	assert.InDelta(t, 225, aggs[0].Median, 0.001)
}

func TestComputeSplitsByType(t *testing.T) {
	records := []model.ProfessionalRecord{
		rec("Salvador", "BA", model.TypePsychologist, 120),
		rec("Salvador", "BA", model.TypePsychiatrist, 400),
	}

	aggs := Compute(records)
	require.Len(t, aggs, 2)
	assert.NotEqual(t, aggs[0].Type, aggs[1].Type)
}

func TestComputeSkipsUnpricedRecords(t *testing.T) {
	records := []model.ProfessionalRecord{
		{Type: model.TypePsychologist, Location: model.CanonicalLocation{DisplayName: "Recife", State: "PE"}},
	}
	assert.Empty(t, Compute(records))
}

func TestComputeInvariants(t *testing.T) {
	records := []model.ProfessionalRecord{
		rec("Recife", "PE", model.TypePsychologist, 80),
		rec("Recife", "PE", model.TypePsychologist, 120),
		rec("Recife", "PE", model.TypePsychologist, 500),
		rec("Natal", "RN", model.TypePsychiatrist, 250),
	}

	for _, agg := range Compute(records) {
		assert.GreaterOrEqual(t, agg.Count, 1)
		assert.LessOrEqual(t, agg.Min, agg.Mean)
		assert.LessOrEqual(t, agg.Mean, agg.Max)
		assert.LessOrEqual(t, agg.Min, agg.Median)
		assert.LessOrEqual(t, agg.Median, agg.Max)
	}
}

func TestComputeOrderIndependent(t *testing.T) {
	records := []model.ProfessionalRecord{
		rec("São Paulo", "SP", model.TypePsychologist, 100),
		rec("São Paulo", "SP", model.TypePsychologist, 200),
		rec("Rio de Janeiro", "RJ", model.TypePsychologist, 180),
		rec("Rio de Janeiro", "RJ", model.TypePsychiatrist, 420),
		rec("Salvador", "BA", model.TypePsychotherapist, 90),
	}

	want := Compute(records)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.ProfessionalRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, Compute(shuffled))
	}
}
