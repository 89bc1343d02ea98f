package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// createTableTool creates an empty table under a namespace.
type createTableTool struct {
	client *dune.Client
}

// CreateTable constructs the create_table tool.
func CreateTable(client *dune.Client) *createTableTool {
	return &createTableTool{client: client}
}

func (t *createTableTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "create_table",
		Description: "Create a new table in Dune. Schema is a list of column definitions with 'name' and 'type'.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"namespace": {
					Type:        "string",
					Description: "The namespace to create the table under",
				},
				"table_name": {
					Type:        "string",
					Description: "Name of the table",
				},
				"schema": {
					Type:        "array",
					Description: "Column definitions",
					Items: &protocol.JSONSchema{
						Type: "object",
						Properties: map[string]protocol.JSONSchema{
							"name": {Type: "string", Description: "Column name"},
							"type": {Type: "string", Description: "Column type (e.g., varchar, integer, timestamp)"},
						},
						Required: []string{"name", "type"},
					},
				},
				"description": {
					Type:        "string",
					Description: "Optional table description",
				},
				"is_private": {
					Type:        "boolean",
					Default:     false,
					Description: "Whether the table should be private",
				},
			},
			Required: []string{"namespace", "table_name", "schema"},
		},
	}
}

type createTableArgs struct {
	Namespace   string              `json:"namespace"`
	TableName   string              `json:"table_name"`
	Schema      []dune.ColumnSchema `json:"schema"`
	Description string              `json:"description,omitempty"`
	IsPrivate   bool                `json:"is_private,omitempty"`
}

type createTablePayload struct {
	Success       bool   `json:"success"`
	FullTableName string `json:"full_table_name"`
	Namespace     string `json:"namespace"`
	TableName     string `json:"table_name"`
	Description   string `json:"description"`
	IsPrivate     bool   `json:"is_private"`
	ExampleUsage  string `json:"example_usage"`
}

func (t *createTableTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args createTableArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}
	if len(args.Schema) == 0 {
		return protocol.CallResult{}, invalidArgs("schema needs at least one column")
	}

	fullName, err := t.client.CreateTable(ctx, dune.CreateTableRequest{
		Namespace:   args.Namespace,
		TableName:   args.TableName,
		Schema:      args.Schema,
		Description: args.Description,
		IsPrivate:   args.IsPrivate,
	})
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}

	return jsonResult(createTablePayload{
		Success:       true,
		FullTableName: fullName,
		Namespace:     args.Namespace,
		TableName:     args.TableName,
		Description:   args.Description,
		IsPrivate:     args.IsPrivate,
		ExampleUsage:  fmt.Sprintf("SELECT * FROM %s", fullName),
	})
}
