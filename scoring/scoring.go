// Package scoring ranks product records by price attractiveness.
package scoring

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/qiq-ai/typesense-mcp/mcp"
)

// Score computes score = 1/price for each product (0 when price is 0 or
// non-coercible) and returns the products stable-sorted by descending
// score. Input entries are preserved; only the score field is added and
// price is coerced to a number.
func Score(products []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(products))
	for _, p := range products {
		scored := make(map[string]interface{}, len(p)+1)
		for k, v := range p {
			scored[k] = v
		}

		price := coerce(p["price"])
		if price < 0 {
			price = 0
		}
		scored["price"] = price

		score := 0.0
		if price > 0 {
			score = 1 / price
		}
		scored["score"] = score

		out = append(out, scored)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i]["score"].(float64) > out[j]["score"].(float64)
	})
	return out
}

func coerce(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Tool returns the qiq_scoring tool definition
func Tool() mcp.ToolDef {
	return mcp.ToolDef{
		Name:        "qiq_scoring",
		Description: "Score product records by price (score = 1/price) and sort them best-first.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"products": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "object"},
				},
				"context": map[string]interface{}{
					"type":        "object",
					"description": "Optional ranking context, currently unused by the formula",
				},
			},
			"required": []interface{}{"products"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"products": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "object"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			raw, _ := args["products"].([]interface{})
			products := make([]map[string]interface{}, 0, len(raw))
			for _, v := range raw {
				if p, ok := v.(map[string]interface{}); ok {
					products = append(products, p)
				}
			}
			return map[string]interface{}{"products": Score(products)}, nil
		},
	}
}
