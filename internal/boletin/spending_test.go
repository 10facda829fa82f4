package boletin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmounts(t *testing.T) {
	t.Run("LocaleFormatted", func(t *testing.T) {
		amounts := ExtractAmounts("se adjudica por la suma de $ 12.345.678,50 pesos")
		require.Len(t, amounts, 1)
		assert.InDelta(t, 12345678.50, amounts[0], 0.001)
	})

	t.Run("FiltersNoise", func(t *testing.T) {
		amounts := ExtractAmounts("artículo $ 500 y luego $ 900")
		assert.Empty(t, amounts)
	})

	t.Run("MultipleAmounts", func(t *testing.T) {
		amounts := ExtractAmounts("monto $ 2.000 más $ 1.500.000")
		require.Len(t, amounts, 2)
		assert.Equal(t, 2000.0, amounts[0])
		assert.Equal(t, 1500000.0, amounts[1])
	})

	t.Run("EmptyText", func(t *testing.T) {
		assert.Nil(t, ExtractAmounts(""))
	})
}

func TestIsSpendingRelated(t *testing.T) {
	assert.True(t, IsSpendingRelated("Llamado a Licitación Pública N° 4"))
	assert.True(t, IsSpendingRelated("autorízase la contratación directa"))
	assert.False(t, IsSpendingRelated("desígnase al agente en planta permanente"))
	assert.False(t, IsSpendingRelated(""))
}

func TestClassify(t *testing.T) {
	t.Run("AmountWins", func(t *testing.T) {
		n := Notice{RawText: "adjudícase por $ 9.750.000"}
		Classify(&n)
		assert.Equal(t, CategoryExpenditure, n.Category)
		assert.Equal(t, 9750000.0, n.Amount)
		assert.Equal(t, "$9.750.000", n.AmountDisplay)
	})

	t.Run("KeywordOnly", func(t *testing.T) {
		n := Notice{Title: "Licitación de obra vial", RawText: "sin cifras"}
		Classify(&n)
		assert.Equal(t, CategoryExpenditure, n.Category)
		assert.Zero(t, n.Amount)
	})

	t.Run("PlainNorm", func(t *testing.T) {
		n := Notice{Title: "Designación de personal", RawText: "desígnase"}
		Classify(&n)
		assert.Equal(t, CategoryNorm, n.Category)
	})
}

func TestFormatPesos(t *testing.T) {
	assert.Equal(t, "$1.234.568", FormatPesos(1234567.89))
	assert.Equal(t, "$950", FormatPesos(950))
	assert.Equal(t, "$12.000", FormatPesos(12000))
}

func TestNoticeNeedsSummary(t *testing.T) {
	n := Notice{}
	assert.True(t, n.NeedsSummary())
	n.ShortSummary = "algo"
	assert.True(t, n.NeedsSummary())
	n.LongSummary = "algo más largo"
	assert.False(t, n.NeedsSummary())
}

func TestDatasetHelpers(t *testing.T) {
	ds := Dataset{Notices: []Notice{
		{ReferenceID: "resolucion/2024/40202/468053", ShortSummary: "a", LongSummary: "b"},
		{ReferenceID: "decreto/2024/100/440000"},
	}}

	assert.True(t, ds.Contains("decreto/2024/100/440000"))
	assert.False(t, ds.Contains("ley/2024/1/1"))
	assert.Equal(t, []int{1}, ds.Pending())
}
