package dune

import "encoding/json"

// QueryParameter is a single declared parameter on a saved query.
type QueryParameter struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Query is the metadata Dune returns for a saved query.
type Query struct {
	QueryID     int              `json:"query_id"`
	Name        string           `json:"name"`
	SQL         string           `json:"query_sql"`
	Owner       string           `json:"owner"`
	IsPrivate   bool             `json:"is_private"`
	IsArchived  bool             `json:"is_archived"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Version     int              `json:"version"`
	Engine      string           `json:"query_engine"`
	Parameters  []QueryParameter `json:"parameters"`
}

// URL returns the public page for the query.
func (q Query) URL() string {
	return queryURL(q.QueryID)
}

// ExecutionResult is the normalized outcome of running a query or
// fetching its latest result. Rows are capped at MaxResultRows.
type ExecutionResult struct {
	ExecutionID string           `json:"execution_id"`
	State       string           `json:"state"`
	RowCount    int              `json:"row_count"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	Finished    bool             `json:"is_execution_finished"`
}

// CreateQueryRequest carries the fields for saving a new query.
type CreateQueryRequest struct {
	Name       string           `json:"name"`
	SQL        string           `json:"query_sql"`
	IsPrivate  bool             `json:"is_private"`
	Parameters []QueryParameter `json:"parameters,omitempty"`
}

// ColumnSchema declares one column of a new table.
type ColumnSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateTableRequest carries the fields for creating an empty table.
type CreateTableRequest struct {
	Namespace   string         `json:"namespace"`
	TableName   string         `json:"table_name"`
	Schema      []ColumnSchema `json:"schema"`
	Description string         `json:"description,omitempty"`
	IsPrivate   bool           `json:"is_private"`
}

// UploadCSVRequest carries the fields for a CSV table upload. Data is the
// raw CSV text including the header row.
type UploadCSVRequest struct {
	TableName   string `json:"table_name"`
	Data        string `json:"data"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private"`
}

// executionStatus is the raw execution/results payload from the API.
type executionStatus struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
	Result      *struct {
		Rows     []map[string]any `json:"rows"`
		Metadata struct {
			ColumnNames []string `json:"column_names"`
		} `json:"metadata"`
	} `json:"result"`
}

// apiError is the shape Dune uses for error bodies.
type apiError struct {
	Error string `json:"error"`
}

func decodeErrorDetail(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}
