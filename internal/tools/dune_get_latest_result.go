package tools

import (
	"context"
	"encoding/json"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// getLatestResultTool fetches a query's latest result without forcing a
// re-run. Freshness is the upstream service's call; nothing is cached here.
type getLatestResultTool struct {
	client *dune.Client
}

// GetLatestQueryResult constructs the get_latest_query_result tool.
func GetLatestQueryResult(client *dune.Client) *getLatestResultTool {
	return &getLatestResultTool{client: client}
}

func (t *getLatestResultTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "get_latest_query_result",
		Description: "Get the latest results for a query without re-executing it. Optionally specify max_age_hours to re-run if data is too old.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"query_id": {
					Type:        "integer",
					Minimum:     protocol.Min(1),
					Description: "The ID of the query",
				},
				"max_age_hours": {
					Type:        "integer",
					Minimum:     protocol.Min(1),
					Description: "Maximum acceptable result age in hours; the service re-runs the query if exceeded",
				},
			},
			Required: []string{"query_id"},
		},
	}
}

type getLatestResultArgs struct {
	QueryID     int `json:"query_id"`
	MaxAgeHours int `json:"max_age_hours,omitempty"`
}

func (t *getLatestResultTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args getLatestResultArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	res, err := t.client.GetLatestResult(ctx, args.QueryID, args.MaxAgeHours)
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}
	payload := newResultPayload(args.QueryID, res)
	payload.Cached = true
	return jsonResult(payload)
}
