package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// jsonResult renders a payload as pretty-printed JSON text content.
func jsonResult(payload any) (protocol.CallResult, *protocol.ResponseError) {
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return protocol.CallResult{}, &protocol.ResponseError{Code: protocol.CodeInternalError, Message: fmt.Sprintf("encode result: %v", err)}
	}
	return protocol.CallResult{Content: []protocol.ContentPart{{Type: "text", Text: string(pretty)}}}, nil
}

// adapterError maps an adapter failure onto the protocol error codes.
func adapterError(err error) *protocol.ResponseError {
	var de *dune.Error
	if errors.As(err, &de) {
		code := protocol.CodeUpstreamError
		switch de.Kind {
		case dune.KindInvalidArgument:
			code = protocol.CodeInvalidArgument
		case dune.KindRateLimited:
			code = protocol.CodeRateLimited
		case dune.KindPermissionDenied:
			code = protocol.CodePermissionDenied
		}
		return &protocol.ResponseError{Code: code, Message: de.Message}
	}
	return &protocol.ResponseError{Code: protocol.CodeUpstreamError, Message: err.Error()}
}

func invalidArgs(msg string) *protocol.ResponseError {
	return &protocol.ResponseError{Code: protocol.CodeInvalidArgument, Message: msg}
}

// resultPayload is the row/column shape shared by the two result tools.
type resultPayload struct {
	QueryID     int              `json:"query_id"`
	ExecutionID string           `json:"execution_id"`
	State       string           `json:"state"`
	RowCount    int              `json:"row_count"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	Finished    bool             `json:"is_execution_finished"`
	Cached      bool             `json:"cached,omitempty"`
}

func newResultPayload(queryID int, res dune.ExecutionResult) resultPayload {
	return resultPayload{
		QueryID:     queryID,
		ExecutionID: res.ExecutionID,
		State:       res.State,
		RowCount:    res.RowCount,
		Columns:     res.Columns,
		Rows:        res.Rows,
		Finished:    res.Finished,
	}
}

// queryParameterView is how declared parameters appear in tool output.
type queryParameterView struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

func parameterViews(params []dune.QueryParameter) []queryParameterView {
	views := make([]queryParameterView, 0, len(params))
	for _, p := range params {
		views = append(views, queryParameterView{Name: p.Key, Type: p.Type, Value: p.Value})
	}
	return views
}
