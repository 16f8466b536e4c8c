package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreOrdering(t *testing.T) {
	scored := Score([]map[string]interface{}{
		{"objectID": "a", "price": 20.0},
		{"objectID": "b", "price": 10.0},
	})

	require.Len(t, scored, 2)
	assert.Equal(t, "b", scored[0]["objectID"])
	assert.Equal(t, 0.1, scored[0]["score"])
	assert.Equal(t, "a", scored[1]["objectID"])
	assert.Equal(t, 0.05, scored[1]["score"])
}

func TestScoreZeroPrice(t *testing.T) {
	scored := Score([]map[string]interface{}{
		{"objectID": "free", "price": 0.0},
	})

	require.Len(t, scored, 1)
	score := scored[0]["score"].(float64)
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsInf(score, 0))
	assert.False(t, math.IsNaN(score))
}

func TestScorePreservesEntriesAndCoercesPrice(t *testing.T) {
	scored := Score([]map[string]interface{}{
		{"objectID": "a", "price": "5", "brand": "Acme"},
		{"objectID": "b", "price": "n/a"},
		{"objectID": "c"},
	})

	require.Len(t, scored, 3)

	assert.Equal(t, "a", scored[0]["objectID"])
	assert.Equal(t, "Acme", scored[0]["brand"])
	assert.Equal(t, 5.0, scored[0]["price"])
	assert.Equal(t, 0.2, scored[0]["score"])

	// non-coercible and missing prices score zero, entries kept
	assert.Equal(t, 0.0, scored[1]["price"])
	assert.Equal(t, 0.0, scored[1]["score"])
	assert.Equal(t, 0.0, scored[2]["score"])
}

func TestScoreStableForEqualPrices(t *testing.T) {
	scored := Score([]map[string]interface{}{
		{"objectID": "first", "price": 10.0},
		{"objectID": "second", "price": 10.0},
		{"objectID": "third", "price": 10.0},
	})

	require.Len(t, scored, 3)
	assert.Equal(t, "first", scored[0]["objectID"])
	assert.Equal(t, "second", scored[1]["objectID"])
	assert.Equal(t, "third", scored[2]["objectID"])
}

func TestScoreDoesNotMutateInput(t *testing.T) {
	input := []map[string]interface{}{
		{"objectID": "a", "price": "5"},
	}
	Score(input)

	assert.Equal(t, "5", input[0]["price"])
	_, hasScore := input[0]["score"]
	assert.False(t, hasScore)
}

func TestTool(t *testing.T) {
	def := Tool()
	assert.Equal(t, "qiq_scoring", def.Name)

	result, err := def.Call(context.Background(), map[string]interface{}{
		"products": []interface{}{
			map[string]interface{}{"objectID": "a", "price": 10.0},
			map[string]interface{}{"objectID": "b", "price": 20.0},
		},
		"context": map[string]interface{}{"intent": "cheapest"},
	})
	require.NoError(t, err)

	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	products, ok := out["products"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0]["objectID"])
}
