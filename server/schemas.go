package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// memorySearchTool returns the tool definition for memory_search
func memorySearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_search",
		Description: "Search memories, patterns, and documents with hybrid ranking, filters, and pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text search query; empty matches everything",
				},
				"caller_id": map[string]interface{}{
					"type":        "string",
					"description": "Tenant issuing the query; results are limited to this tenant plus shared content",
				},
				"types": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these content types",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"conversation", "pattern", "document"},
					},
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Keep only items carrying at least one of these tags",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"date_from": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 lower bound on item timestamp",
				},
				"date_to": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 upper bound on item timestamp",
				},
				"container_tag": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one curated-content collection",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ranked results to skip",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"caller_id"},
		},
	}
}
