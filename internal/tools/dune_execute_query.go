package tools

import (
	"context"
	"encoding/json"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// executeQueryTool runs a saved query and waits for its result.
type executeQueryTool struct {
	client *dune.Client
}

// ExecuteQuery constructs the execute_query tool.
func ExecuteQuery(client *dune.Client) *executeQueryTool {
	return &executeQueryTool{client: client}
}

func (t *executeQueryTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "execute_query",
		Description: "Execute a Dune query and return the results. Optionally provide parameters to pass to the query.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"query_id": {
					Type:        "integer",
					Minimum:     protocol.Min(1),
					Description: "The ID of the query to execute",
				},
				"parameters": {
					Type:                 "object",
					Description:          "Mapping of parameter name to scalar value",
					AdditionalProperties: true,
				},
			},
			Required: []string{"query_id"},
		},
	}
}

type executeQueryArgs struct {
	QueryID    int            `json:"query_id"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (t *executeQueryTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args executeQueryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	res, err := t.client.ExecuteQuery(ctx, args.QueryID, args.Parameters)
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}
	return jsonResult(newResultPayload(args.QueryID, res))
}
