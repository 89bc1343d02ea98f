package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/mcp"
	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// stubUpstream serves canned success responses for every Dune endpoint the
// tools touch and counts requests.
func stubUpstream(t *testing.T) (*mcp.Toolbox, *int32) {
	t.Helper()
	var calls int32

	completed := map[string]any{
		"execution_id": "01HXSTUB",
		"state":        "QUERY_STATE_COMPLETED",
		"result": map[string]any{
			"rows":     []map[string]any{{"day": "2024-01-01", "volume": 42}},
			"metadata": map[string]any{"column_names": []string{"day", "volume"}},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/query/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost: // execute
			_ = json.NewEncoder(w).Encode(map[string]any{"execution_id": "01HXSTUB", "state": "QUERY_STATE_PENDING"})
		case r.URL.Path == "/v1/query/1234567/results":
			_ = json.NewEncoder(w).Encode(completed)
		default: // metadata
			_ = json.NewEncoder(w).Encode(map[string]any{
				"query_id":   1234567,
				"name":       "Sample Query",
				"query_sql":  "SELECT 1",
				"owner":      "alice",
				"is_private": false,
				"parameters": []map[string]any{{"key": "chain", "type": "text", "value": "ethereum"}},
			})
		}
	})
	mux.HandleFunc("/v1/query", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"query_id": 999})
	})
	mux.HandleFunc("/v1/execution/01HXSTUB/results", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(completed)
	})
	mux.HandleFunc("/v1/table/create", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/v1/table/upload/csv", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := dune.NewClient(srv.URL, "test-key", 5*time.Second)
	return newToolbox(client), &calls
}

func newToolbox(client *dune.Client) *mcp.Toolbox {
	return mcp.NewToolbox(
		GetQuery(client),
		ExecuteQuery(client),
		GetLatestQueryResult(client),
		CreateQuery(client),
		CreateTable(client),
		UploadCSVToTable(client),
		QueryBuilderHelper(),
	)
}

func call(t *testing.T, tb *mcp.Toolbox, name, args string) (protocol.CallResult, *protocol.ResponseError) {
	t.Helper()
	return tb.Call(context.Background(), name, json.RawMessage(args))
}

func payloadOf(t *testing.T, res protocol.CallResult) map[string]any {
	t.Helper()
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].Text), &payload); err != nil {
		t.Fatalf("content is not JSON: %v\n%s", err, res.Content[0].Text)
	}
	return payload
}

// Every registered tool must accept arguments matching its own descriptor.
func TestDescriptorsMatchAcceptedArguments(t *testing.T) {
	tb, _ := stubUpstream(t)

	minimalArgs := map[string]string{
		"get_query":               `{"query_id": 1234567}`,
		"execute_query":           `{"query_id": 1234567, "parameters": {"chain": "ethereum"}}`,
		"get_latest_query_result": `{"query_id": 1234567, "max_age_hours": 8}`,
		"create_query":            `{"name": "q", "query_sql": "SELECT 1", "is_private": true, "parameters": [{"name": "chain", "type": "text", "value": "ethereum"}]}`,
		"create_table":            `{"namespace": "team", "table_name": "t", "schema": [{"name": "a", "type": "varchar"}], "description": "d", "is_private": false}`,
		"upload_csv_to_table":     `{"table_name": "t", "csv_data": "a,b\n1,2\n", "description": "d"}`,
		"query_builder_helper":    `{"pattern": "top token holders", "tables": ["team.balances"], "filters": "day > DATE '2024-01-01'"}`,
	}

	descs := tb.Describe()
	if len(descs) != len(minimalArgs) {
		t.Fatalf("expected %d tools, got %d", len(minimalArgs), len(descs))
	}
	for _, desc := range descs {
		args, ok := minimalArgs[desc.Name]
		if !ok {
			t.Fatalf("no argument fixture for tool %s", desc.Name)
		}
		_, err := call(t, tb, desc.Name, args)
		if err != nil && (err.Code == protocol.CodeInvalidArgument || err.Code == protocol.CodeUnknownTool) {
			t.Fatalf("tool %s rejected its own declared arguments: %+v", desc.Name, err)
		}
	}
}

func TestCatalogOrderIsStable(t *testing.T) {
	tb, _ := stubUpstream(t)
	want := []string{
		"get_query", "execute_query", "get_latest_query_result", "create_query",
		"create_table", "upload_csv_to_table", "query_builder_helper",
	}
	for pass := 0; pass < 3; pass++ {
		descs := tb.Describe()
		for i, d := range descs {
			if d.Name != want[i] {
				t.Fatalf("pass %d: expected %s at %d, got %s", pass, want[i], i, d.Name)
			}
		}
	}
}

func TestGetQueryMissingID(t *testing.T) {
	tb, calls := stubUpstream(t)
	_, err := call(t, tb, "get_query", `{}`)
	if err == nil || err.Code != protocol.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatal("invalid arguments must not reach the upstream")
	}
}

func TestGetQueryReturnsMetadata(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "get_query", `{"query_id": 1234567}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	payload := payloadOf(t, res)
	if payload["query_id"] != float64(1234567) || payload["name"] != "Sample Query" || payload["sql"] != "SELECT 1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["owner"] != "alice" || payload["url"] != "https://dune.com/queries/1234567" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGetQueryNumericStringID(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "get_query", `{"query_id": "1234567"}`)
	if err != nil {
		t.Fatalf("expected numeric string id to normalize, got %+v", err)
	}
	if payloadOf(t, res)["query_id"] != float64(1234567) {
		t.Fatal("normalized id not forwarded")
	}
}

func TestGetQueryTwiceHitsUpstreamTwice(t *testing.T) {
	tb, calls := stubUpstream(t)
	first, err := call(t, tb, "get_query", `{"query_id": 1234567}`)
	if err != nil {
		t.Fatalf("first call: %+v", err)
	}
	second, err := call(t, tb, "get_query", `{"query_id": 1234567}`)
	if err != nil {
		t.Fatalf("second call: %+v", err)
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", atomic.LoadInt32(calls))
	}
	if first.Content[0].Text != second.Content[0].Text {
		t.Fatal("identical requests should yield identical payloads")
	}
}

func TestExecuteQueryReturnsRows(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "execute_query", `{"query_id": 1234567}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	payload := payloadOf(t, res)
	if payload["execution_id"] != "01HXSTUB" || payload["state"] != "QUERY_STATE_COMPLETED" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["row_count"] != float64(1) {
		t.Fatalf("unexpected row count: %v", payload["row_count"])
	}
}

func TestGetLatestResultMarkedCached(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "get_latest_query_result", `{"query_id": 1234567}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if payloadOf(t, res)["cached"] != true {
		t.Fatal("latest result payload should be marked cached")
	}
}

func TestCreateQueryPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"upgrade required"}`))
	}))
	defer srv.Close()
	tb := newToolbox(dune.NewClient(srv.URL, "k", time.Second))

	_, err := call(t, tb, "create_query", `{"name": "q", "query_sql": "SELECT 1"}`)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Code != protocol.CodePermissionDenied {
		t.Fatalf("expected permission denied code %d, got %d (%s)", protocol.CodePermissionDenied, err.Code, err.Message)
	}
}

func TestRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	tb := newToolbox(dune.NewClient(srv.URL, "k", time.Second))

	_, err := call(t, tb, "execute_query", `{"query_id": 5}`)
	if err == nil || err.Code != protocol.CodeRateLimited {
		t.Fatalf("expected rate limited, got %+v", err)
	}
}

func TestCreateTablePayload(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "create_table", `{"namespace": "team", "table_name": "balances", "schema": [{"name": "wallet", "type": "varchar"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	payload := payloadOf(t, res)
	if payload["full_table_name"] != "dune.team.balances" {
		t.Fatalf("unexpected table name: %v", payload["full_table_name"])
	}
	if payload["example_usage"] != "SELECT * FROM dune.team.balances" {
		t.Fatalf("unexpected example: %v", payload["example_usage"])
	}
}

func TestUploadCSVReportsRowCount(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "upload_csv_to_table", `{"table_name": "prices", "csv_data": "token,price\nETH,3000\nBTC,60000\n"}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if payloadOf(t, res)["rows_ingested"] != float64(2) {
		t.Fatal("expected 2 rows ingested")
	}
}

func TestUploadCSVMalformedIsInvalidArgument(t *testing.T) {
	tb, calls := stubUpstream(t)
	_, err := call(t, tb, "upload_csv_to_table", `{"table_name": "t", "csv_data": "a,b\n\"broken,1\n"}`)
	if err == nil || err.Code != protocol.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatal("malformed CSV must not reach the upstream")
	}
}

func TestQueryBuilderDeterministic(t *testing.T) {
	tb, calls := stubUpstream(t)
	args := `{"pattern": "top token holders", "tables": ["team.balances"], "filters": "block_time > NOW() - INTERVAL '30' day"}`

	first, err := call(t, tb, "query_builder_helper", args)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	second, err := call(t, tb, "query_builder_helper", args)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if first.Content[0].Text != second.Content[0].Text {
		t.Fatal("query builder output must be byte-identical across calls")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatal("query builder must not make network calls")
	}

	payload := payloadOf(t, first)
	sql, _ := payload["template_sql"].(string)
	if sql == "" {
		t.Fatal("missing template_sql")
	}
	for _, want := range []string{"FROM team.balances", "WHERE block_time > NOW() - INTERVAL '30' day", "ORDER BY balance DESC"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("template missing %q:\n%s", want, sql)
		}
	}
}

func TestQueryBuilderUnknownPattern(t *testing.T) {
	tb, calls := stubUpstream(t)
	_, err := call(t, tb, "query_builder_helper", `{"pattern": "moon phase"}`)
	if err == nil || err.Code != protocol.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatal("unknown pattern must not make network calls")
	}
}

func TestQueryBuilderQualifiesBareTables(t *testing.T) {
	tb, _ := stubUpstream(t)
	res, err := call(t, tb, "query_builder_helper", `{"pattern": "volume over time", "tables": ["my_upload"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	sql, _ := payloadOf(t, res)["template_sql"].(string)
	if !strings.Contains(sql, "FROM dune.my_upload") {
		t.Fatalf("bare table not qualified:\n%s", sql)
	}
}

