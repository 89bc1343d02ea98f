package dune

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dune/dune-analytics-mcp-server/internal/version"
)

// MaxResultRows caps the rows returned from result endpoints.
const MaxResultRows = 100

const defaultPollInterval = time.Second

// Client wraps the Dune Analytics HTTP API. One instance is built at
// startup and shared by every tool; it holds no per-call state.
type Client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
}

// NewClient builds a client against the given API base (e.g.
// https://api.dune.com/api) using the supplied key for every request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		http:         &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
}

// GetQuery fetches metadata for a saved query.
func (c *Client) GetQuery(ctx context.Context, queryID int) (Query, error) {
	var q Query
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/query/%d", queryID), nil, &q); err != nil {
		return Query{}, err
	}
	if q.QueryID == 0 {
		q.QueryID = queryID
	}
	return q, nil
}

// ExecuteQuery starts an execution and blocks until it reaches a terminal
// state, then returns the normalized result. Parameters are forwarded as
// string values the way the query's own parameter types expect.
func (c *Client) ExecuteQuery(ctx context.Context, queryID int, parameters map[string]any) (ExecutionResult, error) {
	body := map[string]any{}
	if len(parameters) > 0 {
		wire, err := wireParameters(parameters)
		if err != nil {
			return ExecutionResult{}, err
		}
		body["query_parameters"] = wire
	}

	var started struct {
		ExecutionID string `json:"execution_id"`
		State       string `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/query/%d/execute", queryID), body, &started); err != nil {
		return ExecutionResult{}, err
	}
	if started.ExecutionID == "" {
		return ExecutionResult{}, upstreamf("execute response missing execution_id")
	}

	for {
		var status executionStatus
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/execution/%s/results", url.PathEscape(started.ExecutionID)), nil, &status); err != nil {
			return ExecutionResult{}, err
		}
		if isTerminalState(status.State) {
			return normalizeResult(status), nil
		}
		select {
		case <-ctx.Done():
			return ExecutionResult{}, upstreamf("execution %s interrupted: %v", started.ExecutionID, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// GetLatestResult returns the most recent result for a query without
// forcing a fresh execution. A positive maxAgeHours is forwarded upstream;
// the freshness decision is the service's, not ours.
func (c *Client) GetLatestResult(ctx context.Context, queryID int, maxAgeHours int) (ExecutionResult, error) {
	path := fmt.Sprintf("/v1/query/%d/results", queryID)
	if maxAgeHours > 0 {
		path = fmt.Sprintf("%s?max_age_hours=%d", path, maxAgeHours)
	}
	var status executionStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return ExecutionResult{}, err
	}
	return normalizeResult(status), nil
}

// CreateQuery saves a new query and returns its metadata.
func (c *Client) CreateQuery(ctx context.Context, req CreateQueryRequest) (Query, error) {
	var created struct {
		QueryID int `json:"query_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/query", req, &created); err != nil {
		return Query{}, err
	}
	if created.QueryID == 0 {
		return Query{}, upstreamf("create query response missing query_id")
	}
	return Query{
		QueryID:    created.QueryID,
		Name:       req.Name,
		SQL:        req.SQL,
		IsPrivate:  req.IsPrivate,
		Parameters: req.Parameters,
	}, nil
}

// CreateTable creates an empty table and returns its full name
// (dune.<namespace>.<table>).
func (c *Client) CreateTable(ctx context.Context, req CreateTableRequest) (string, error) {
	if err := c.do(ctx, http.MethodPost, "/v1/table/create", req, nil); err != nil {
		return "", err
	}
	return fmt.Sprintf("dune.%s.%s", req.Namespace, req.TableName), nil
}

// UploadCSV validates the CSV locally, uploads it, and returns the number
// of data rows ingested (header excluded). Malformed CSV never reaches the
// network.
func (c *Client) UploadCSV(ctx context.Context, req UploadCSVRequest) (int, error) {
	rows, err := countCSVRows(req.Data)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/table/upload/csv", req, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, upstreamf("upload rejected for table %q", req.TableName)
	}
	return rows, nil
}

// do performs one round trip: marshal body, send with auth headers, map a
// bad status to the error taxonomy, decode the payload. No retries.
func (c *Client) do(ctx context.Context, method, path string, body, out any) *Error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return upstreamf("encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return upstreamf("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Dune-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return upstreamf("http error: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstreamf("read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromStatus(resp.StatusCode, decodeErrorDetail(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return upstreamf("decode response: %v", err)
		}
	}
	return nil
}

func isTerminalState(state string) bool {
	switch state {
	case "QUERY_STATE_COMPLETED", "QUERY_STATE_FAILED", "QUERY_STATE_CANCELLED", "QUERY_STATE_EXPIRED":
		return true
	}
	return false
}

func normalizeResult(status executionStatus) ExecutionResult {
	res := ExecutionResult{
		ExecutionID: status.ExecutionID,
		State:       status.State,
		Finished:    isTerminalState(status.State),
	}
	if status.Result == nil {
		return res
	}
	res.RowCount = len(status.Result.Rows)
	res.Columns = status.Result.Metadata.ColumnNames
	rows := status.Result.Rows
	if len(rows) > MaxResultRows {
		rows = rows[:MaxResultRows]
	}
	res.Rows = rows
	return res
}

// wireParameters flattens a name→scalar mapping into the string values the
// execute endpoint takes. Non-scalar values are an argument error.
func wireParameters(parameters map[string]any) (map[string]string, *Error) {
	wire := make(map[string]string, len(parameters))
	for name, value := range parameters {
		switch v := value.(type) {
		case string:
			wire[name] = v
		case float64:
			wire[name] = trimFloat(v)
		case int:
			wire[name] = fmt.Sprintf("%d", v)
		case bool:
			wire[name] = fmt.Sprintf("%t", v)
		default:
			return nil, invalidf("parameter %q must be a string, number, or boolean", name)
		}
	}
	return wire, nil
}

// trimFloat prints JSON numbers without a trailing ".0" for integral values.
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func countCSVRows(data string) (int, *Error) {
	if strings.TrimSpace(data) == "" {
		return 0, invalidf("csv_data is empty")
	}
	r := csv.NewReader(strings.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return 0, invalidf("malformed CSV: %v", err)
	}
	if len(records) < 2 {
		return 0, invalidf("CSV needs a header row and at least one data row")
	}
	return len(records) - 1, nil
}

func queryURL(queryID int) string {
	return fmt.Sprintf("https://dune.com/queries/%d", queryID)
}
