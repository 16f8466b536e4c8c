package mcp

import "context"

// PingTool returns a trivial echo tool used for connectivity checks
func PingTool() ToolDef {
	return ToolDef{
		Name:        "ping",
		Description: "Echo back the provided status.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Status text to echo back",
				},
			},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"reply": map[string]interface{}{"type": "string"},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			status, _ := args["status"].(string)
			if status == "" {
				status = "pong"
			}
			return map[string]interface{}{"reply": status}, nil
		},
	}
}
