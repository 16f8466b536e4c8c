package typesense

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qiq-ai/typesense-mcp/mcp"
)

// SearchTool returns the typesense_search tool definition
func (a *Adapter) SearchTool() mcp.ToolDef {
	return mcp.ToolDef{
		Name:        "typesense_search",
		Description: "Search the product catalog by object IDs or free-text keywords, optionally constrained by category.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"objectID": map[string]interface{}{
					"type":        "string",
					"description": "Single product identifier to resolve",
				},
				"objectIDs": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Product identifiers to resolve; one record is returned per identifier",
				},
				"keywords": map[string]interface{}{
					"type":        "string",
					"description": "Free-text query, used only when no identifiers are given",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Exact category filter for keyword searches",
				},
			},
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
			req := SearchRequest{}
			if id, ok := args["objectID"].(string); ok && strings.TrimSpace(id) != "" {
				req.ObjectIDs = append(req.ObjectIDs, id)
			}
			if ids, ok := args["objectIDs"].([]interface{}); ok {
				for _, v := range ids {
					if id, ok := v.(string); ok {
						req.ObjectIDs = append(req.ObjectIDs, id)
					}
				}
			}
			if keywords, ok := args["keywords"].(string); ok {
				req.Keywords = keywords
			}
			if category, ok := args["category"].(string); ok {
				req.Category = category
			}
			return map[string]interface{}{"products": a.Search(ctx, req)}, nil
		},
	}
}

// ConfigTool returns the typesense_config_set tool definition
func (c *Controller) ConfigTool() mcp.ToolDef {
	return mcp.ToolDef{
		Name:        "typesense_config_set",
		Description: "Apply a partial Typesense configuration update; unspecified fields keep their current values. The backend client is rebuilt on next use.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"host":       map[string]interface{}{"type": "string"},
				"protocol":   map[string]interface{}{"type": "string", "enum": []interface{}{"http", "https"}},
				"port":       map[string]interface{}{"type": "integer"},
				"apiKey":     map[string]interface{}{"type": "string"},
				"collection": map[string]interface{}{"type": "string"},
				"queryFields": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"applied":   map[string]interface{}{"type": "boolean"},
				"config":    map[string]interface{}{"type": "object"},
				"keyLength": map[string]interface{}{"type": "integer"},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			data, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("error encoding config patch: %w", err)
			}
			var patch ConfigPatch
			if err := json.Unmarshal(data, &patch); err != nil {
				return nil, fmt.Errorf("error decoding config patch: %w", err)
			}

			status := c.Apply(patch)
			return map[string]interface{}{
				"applied":   true,
				"config":    status,
				"keyLength": status.KeyLength,
			}, nil
		},
	}
}

// HealthTool returns the typesense_health tool definition
func (c *Controller) HealthTool() mcp.ToolDef {
	return mcp.ToolDef{
		Name:        "typesense_health",
		Description: "Probe Typesense connectivity and report the effective configuration.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"connected":  map[string]interface{}{"type": "boolean"},
				"host":       map[string]interface{}{"type": "string"},
				"protocol":   map[string]interface{}{"type": "string"},
				"port":       map[string]interface{}{"type": "integer"},
				"collection": map[string]interface{}{"type": "string"},
				"fields":     map[string]interface{}{"type": "array"},
				"error":      map[string]interface{}{"type": "string"},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return c.Health(ctx), nil
		},
	}
}
