package tools

import (
	"context"
	"encoding/json"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// getQueryTool retrieves metadata for a saved Dune query.
type getQueryTool struct {
	client *dune.Client
}

// GetQuery constructs the get_query tool.
func GetQuery(client *dune.Client) *getQueryTool {
	return &getQueryTool{client: client}
}

func (t *getQueryTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "get_query",
		Description: "Retrieve detailed information about a Dune query by its ID: metadata, SQL, parameters, and ownership info.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"query_id": {
					Type:        "integer",
					Minimum:     protocol.Min(1),
					Description: "The ID of the Dune query",
				},
			},
			Required: []string{"query_id"},
		},
	}
}

type getQueryArgs struct {
	QueryID int `json:"query_id"`
}

type queryInfoPayload struct {
	QueryID     int                  `json:"query_id"`
	Name        string               `json:"name"`
	SQL         string               `json:"sql"`
	Owner       string               `json:"owner"`
	IsPrivate   bool                 `json:"is_private"`
	IsArchived  bool                 `json:"is_archived"`
	Description string               `json:"description"`
	Tags        []string             `json:"tags"`
	Version     int                  `json:"version"`
	Engine      string               `json:"engine"`
	Parameters  []queryParameterView `json:"parameters"`
	URL         string               `json:"url"`
}

func (t *getQueryTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args getQueryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	query, err := t.client.GetQuery(ctx, args.QueryID)
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}

	return jsonResult(queryInfoPayload{
		QueryID:     query.QueryID,
		Name:        query.Name,
		SQL:         query.SQL,
		Owner:       query.Owner,
		IsPrivate:   query.IsPrivate,
		IsArchived:  query.IsArchived,
		Description: query.Description,
		Tags:        query.Tags,
		Version:     query.Version,
		Engine:      query.Engine,
		Parameters:  parameterViews(query.Parameters),
		URL:         query.URL(),
	})
}
