package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// queryBuilderTool synthesizes Dune v2 SQL from a fixed template library.
// Purely local: no client handle, no network.
type queryBuilderTool struct{}

// QueryBuilderHelper constructs the query_builder_helper tool.
func QueryBuilderHelper() *queryBuilderTool {
	return &queryBuilderTool{}
}

// queryPattern is one entry in the template library.
type queryPattern struct {
	columns     []string
	defaultFrom string
	conditions  []string
	tail        []string
}

var queryPatterns = map[string]queryPattern{
	"top token holders": {
		columns:     []string{"wallet_address", "SUM(amount) AS balance"},
		defaultFrom: "dune.namespace.token_balances",
		tail: []string{
			"GROUP BY wallet_address",
			"ORDER BY balance DESC",
			"LIMIT 100",
		},
	},
	"volume over time": {
		columns:     []string{"DATE_TRUNC('day', block_time) AS day", "SUM(amount_usd) AS volume_usd"},
		defaultFrom: "dex.trades",
		tail: []string{
			"GROUP BY 1",
			"ORDER BY 1",
		},
	},
	"daily active users": {
		columns:     []string{"DATE_TRUNC('day', block_time) AS day", "COUNT(DISTINCT \"from\") AS active_users"},
		defaultFrom: "ethereum.transactions",
		tail: []string{
			"GROUP BY 1",
			"ORDER BY 1",
		},
	},
	"dex trades": {
		columns:     []string{"block_time", "token_bought_symbol", "token_sold_symbol", "amount_usd", "tx_hash"},
		defaultFrom: "dex.trades",
		conditions:  []string{"block_time > NOW() - INTERVAL '7' day"},
		tail: []string{
			"ORDER BY block_time DESC",
			"LIMIT 1000",
		},
	},
	"balance history": {
		columns:     []string{"DATE_TRUNC('day', block_time) AS day", "wallet_address", "SUM(amount) AS balance_change"},
		defaultFrom: "dune.namespace.token_balances",
		tail: []string{
			"GROUP BY 1, 2",
			"ORDER BY 1",
		},
	},
}

var queryBuilderTips = []string{
	"Use 'dune.namespace.table_name' format for user tables and uploads",
	"Standard blockchain tables: ethereum.transactions, ethereum.blocks, dex.trades, etc.",
	"Use {{parameter_name}} for parameterized queries",
	"Cast numeric fields explicitly: CAST(gas_used AS uint256)",
	"Use DATE_TRUNC and INTERVAL for time filtering",
}

func patternNames() []string {
	names := make([]string, 0, len(queryPatterns))
	for name := range queryPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *queryBuilderTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "query_builder_helper",
		Description: "Generate template Dune v2 SQL for a known query pattern, with optional table references and filters. Local only, no API call.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"pattern": {
					Type:        "string",
					Enum:        patternNames(),
					Description: "Which query pattern to generate",
				},
				"tables": {
					Type:        "array",
					Items:       &protocol.JSONSchema{Type: "string"},
					Description: "Tables for the FROM clause; bare names are prefixed with 'dune.'",
				},
				"filters": {
					Type:        "string",
					Description: "Extra WHERE condition appended to the template",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

type queryBuilderArgs struct {
	Pattern string   `json:"pattern"`
	Tables  []string `json:"tables,omitempty"`
	Filters string   `json:"filters,omitempty"`
}

type queryBuilderPayload struct {
	Pattern     string   `json:"pattern"`
	TemplateSQL string   `json:"template_sql"`
	Tips        []string `json:"tips"`
}

func (t *queryBuilderTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args queryBuilderArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("invalid arguments")
	}

	pattern, ok := queryPatterns[args.Pattern]
	if !ok {
		return protocol.CallResult{}, invalidArgs(fmt.Sprintf("unknown pattern %q; known patterns: %s", args.Pattern, strings.Join(patternNames(), ", ")))
	}

	return jsonResult(queryBuilderPayload{
		Pattern:     args.Pattern,
		TemplateSQL: renderTemplate(args.Pattern, pattern, args.Tables, args.Filters),
		Tips:        queryBuilderTips,
	})
}

func renderTemplate(name string, pattern queryPattern, tables []string, filters string) string {
	from := pattern.defaultFrom
	if len(tables) > 0 {
		refs := make([]string, 0, len(tables))
		for _, table := range tables {
			refs = append(refs, qualifyTable(table))
		}
		from = strings.Join(refs, ", ")
	}

	conditions := append([]string{}, pattern.conditions...)
	if strings.TrimSpace(filters) != "" {
		conditions = append(conditions, strings.TrimSpace(filters))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Dune v2 SQL Query: %s\n", name)
	b.WriteString("SELECT\n")
	for i, col := range pattern.columns {
		sep := ","
		if i == len(pattern.columns)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %s%s\n", col, sep)
	}
	fmt.Fprintf(&b, "FROM %s\n", from)
	for i, cond := range conditions {
		if i == 0 {
			fmt.Fprintf(&b, "WHERE %s\n", cond)
		} else {
			fmt.Fprintf(&b, "  AND %s\n", cond)
		}
	}
	for _, line := range pattern.tail {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// qualifyTable prefixes bare table names with the user-table namespace;
// already-qualified references pass through untouched.
func qualifyTable(table string) string {
	if strings.Contains(table, ".") {
		return table
	}
	return "dune." + table
}
