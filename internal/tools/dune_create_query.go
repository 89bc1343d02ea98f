package tools

import (
	"context"
	"encoding/json"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// createQueryTool saves a new query. Dune gates this behind a paid plan;
// the missing entitlement comes back as a permission error, not a generic
// upstream failure.
type createQueryTool struct {
	client *dune.Client
}

// CreateQuery constructs the create_query tool.
func CreateQuery(client *dune.Client) *createQueryTool {
	return &createQueryTool{client: client}
}

func (t *createQueryTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "create_query",
		Description: "Create a new Dune query. Returns the created query's ID and metadata. Requires a plan that allows query creation.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"name": {
					Type:        "string",
					Description: "Name for the new query",
				},
				"query_sql": {
					Type:        "string",
					Description: "SQL code for the query",
				},
				"is_private": {
					Type:        "boolean",
					Default:     false,
					Description: "Whether the query should be private",
				},
				"parameters": {
					Type:        "array",
					Description: "Declared query parameters",
					Items: &protocol.JSONSchema{
						Type: "object",
						Properties: map[string]protocol.JSONSchema{
							"name":  {Type: "string", Description: "Parameter name"},
							"type":  {Type: "string", Enum: []string{"text", "number", "date", "enum"}, Description: "Parameter type"},
							"value": {Type: "string", Description: "Default value"},
						},
						Required: []string{"name"},
					},
				},
			},
			Required: []string{"name", "query_sql"},
		},
	}
}

type createQueryArgs struct {
	Name       string            `json:"name"`
	QuerySQL   string            `json:"query_sql"`
	IsPrivate  bool              `json:"is_private,omitempty"`
	Parameters []createParamSpec `json:"parameters,omitempty"`
}

type createParamSpec struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

type createQueryPayload struct {
	QueryID    int                  `json:"query_id"`
	Name       string               `json:"name"`
	URL        string               `json:"url"`
	IsPrivate  bool                 `json:"is_private"`
	Parameters []queryParameterView `json:"parameters"`
}

func (t *createQueryTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args createQueryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	params := make([]dune.QueryParameter, 0, len(args.Parameters))
	for _, p := range args.Parameters {
		typ := p.Type
		if typ == "" {
			typ = "text"
		}
		params = append(params, dune.QueryParameter{Key: p.Name, Type: typ, Value: p.Value})
	}

	created, err := t.client.CreateQuery(ctx, dune.CreateQueryRequest{
		Name:       args.Name,
		SQL:        args.QuerySQL,
		IsPrivate:  args.IsPrivate,
		Parameters: params,
	})
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}

	return jsonResult(createQueryPayload{
		QueryID:    created.QueryID,
		Name:       created.Name,
		URL:        created.URL(),
		IsPrivate:  created.IsPrivate,
		Parameters: parameterViews(created.Parameters),
	})
}
