package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrectionsResult(t *testing.T) {
	t.Run("no corrections collapses to all good", func(t *testing.T) {
		r := CorrectionsResult(map[string][]Correction{"History": {}}, nil)
		assert.Equal(t, CritiqueAllGood, r.Kind)
	})

	t.Run("invalid entries keep corrections variant", func(t *testing.T) {
		r := CorrectionsResult(map[string][]Correction{}, map[string]string{"History": `"oops"`})
		assert.Equal(t, CritiqueCorrections, r.Kind)
		assert.Empty(t, r.Labels())
	})

	t.Run("labels are sorted and skip empty lists", func(t *testing.T) {
		r := CorrectionsResult(map[string][]Correction{
			"Stock Drivers": {{Original: "a", Corrected: "b"}},
			"History":       {{Original: "c", Corrected: "d"}, {Original: "e", Corrected: "f"}},
			"Customers":     {},
		}, nil)

		assert.Equal(t, CritiqueCorrections, r.Kind)
		assert.Equal(t, []string{"History", "Stock Drivers"}, r.Labels())
		assert.Equal(t, 3, r.TotalCorrections())
	})
}

func TestMalformed(t *testing.T) {
	r := Malformed("not json")
	assert.True(t, r.IsMalformed())
	assert.Equal(t, "not json", r.Raw)
	assert.False(t, AllGood().IsMalformed())
}

func TestCritiqueKindString(t *testing.T) {
	assert.Equal(t, "all_good", CritiqueAllGood.String())
	assert.Equal(t, "corrections", CritiqueCorrections.String())
	assert.Equal(t, "malformed", CritiqueMalformed.String())
	assert.Equal(t, "unknown", CritiqueKind(42).String())
}
