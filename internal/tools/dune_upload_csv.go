package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// uploadCSVTool creates a table from CSV data. The CSV must carry a header
// row; uploads use the flat dune.<table> naming, not namespaced tables.
type uploadCSVTool struct {
	client *dune.Client
}

// UploadCSVToTable constructs the upload_csv_to_table tool.
func UploadCSVToTable(client *dune.Client) *uploadCSVTool {
	return &uploadCSVTool{client: client}
}

func (t *uploadCSVTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "upload_csv_to_table",
		Description: "Upload CSV data to create a new table in Dune. The CSV must include headers as the first row.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"table_name": {
					Type:        "string",
					Description: "Name of the table to create",
				},
				"csv_data": {
					Type:        "string",
					Description: "Raw CSV text, header row first",
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
			Required: []string{"table_name", "csv_data"},
		},
	}
}

type uploadCSVArgs struct {
	TableName   string `json:"table_name"`
	CSVData     string `json:"csv_data"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private,omitempty"`
}

type uploadCSVPayload struct {
	Success       bool   `json:"success"`
	TableName     string `json:"table_name"`
	FullTableName string `json:"full_table_name"`
	RowsIngested  int    `json:"rows_ingested"`
	Description   string `json:"description"`
	IsPrivate     bool   `json:"is_private"`
	ExampleUsage  string `json:"example_usage"`
}

func (t *uploadCSVTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args uploadCSVArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	rows, err := t.client.UploadCSV(ctx, dune.UploadCSVRequest{
		TableName:   args.TableName,
		Data:        args.CSVData,
		Description: args.Description,
		IsPrivate:   args.IsPrivate,
	})
	if err != nil {
		return protocol.CallResult{}, adapterError(err)
	}

	fullName := fmt.Sprintf("dune.%s", args.TableName)
	return jsonResult(uploadCSVPayload{
		Success:       true,
		TableName:     args.TableName,
		FullTableName: fullName,
		RowsIngested:  rows,
		Description:   args.Description,
		IsPrivate:     args.IsPrivate,
		ExampleUsage:  fmt.Sprintf("SELECT * FROM %s", fullName),
	})
}
