package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pkeller/memsearch/search"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeSearchUnavailable = -32001 // Every backend family failed
	ErrorCodeSearchTimeout     = -32002 // Query deadline exceeded
)

// handleMemorySearch handles the memory_search tool invocation
func (s *Server) handleMemorySearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	callerID, ok := args["caller_id"].(string)
	if !ok || callerID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "caller_id parameter is required", map[string]interface{}{
			"param":  "caller_id",
			"reason": "missing or empty",
		})
	}

	req := search.Request{
		Query:        getStringDefault(args, "query", ""),
		CallerID:     callerID,
		ContainerTag: getStringDefault(args, "container_tag", ""),
		Limit:        getIntDefault(args, "limit", 0),
		Offset:       getIntDefault(args, "offset", 0),
		Tags:         getStringSlice(args, "tags"),
	}
	for _, t := range getStringSlice(args, "types") {
		req.Types = append(req.Types, search.ContentType(t))
	}

	for _, bound := range []struct {
		key string
		dst **time.Time
	}{
		{"date_from", &req.DateFrom},
		{"date_to", &req.DateTo},
	} {
		raw := getStringDefault(args, bound.key, "")
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid date bound", map[string]interface{}{
				"param":  bound.key,
				"reason": err.Error(),
			})
		}
		*bound.dst = &parsed
	}

	page, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, mapEngineError(err)
	}

	return mcp.NewToolResultText(formatPage(page)), nil
}

// mapEngineError converts the engine's error taxonomy into MCP error codes.
func mapEngineError(err error) error {
	switch {
	case search.IsInvalidQuery(err):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case search.IsTimeout(err):
		return newMCPError(ErrorCodeSearchTimeout, err.Error(), nil)
	case search.IsUnavailable(err):
		return newMCPError(ErrorCodeSearchUnavailable, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// formatPage renders the response shape callers consume: the ranked items
// with their score breakdowns plus the pagination and degradation signals.
func formatPage(page *search.Page) string {
	items := make([]map[string]interface{}, 0, len(page.Items))
	for _, r := range page.Items {
		item := map[string]interface{}{
			"id":      r.Item.ID,
			"type":    string(r.Item.Type),
			"title":   r.Item.Fields.Title,
			"summary": r.Item.Fields.Summary,
			"tags":    r.Item.Fields.Tags,
			"score": map[string]interface{}{
				"vector":       r.Score.Vector,
				"keyword":      r.Score.Keyword,
				"recency":      r.Score.Recency,
				"satisfaction": r.Score.Satisfaction,
				"final":        r.Score.Final,
			},
		}
		if !r.Item.Fields.Timestamp.IsZero() {
			item["timestamp"] = r.Item.Fields.Timestamp.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return formatJSON(map[string]interface{}{
		"items":       items,
		"has_more":    page.HasMore,
		"next_offset": page.NextOffset,
		"degraded":    page.Degraded,
	})
}

func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, tolerating the
// []interface{} shape JSON decoding produces.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
