package app

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dune/dune-analytics-mcp-server/internal/config"
	"github.com/dune/dune-analytics-mcp-server/internal/dune"
	"github.com/dune/dune-analytics-mcp-server/internal/mcp"
	"github.com/dune/dune-analytics-mcp-server/internal/tools"
)

// NewToolbox builds the Dune toolbox around one shared client. Order here
// is the order tools/list reports.
func NewToolbox(client *dune.Client) *mcp.Toolbox {
	return mcp.NewToolbox(
		// Query tools
		tools.GetQuery(client),
		tools.ExecuteQuery(client),
		tools.GetLatestQueryResult(client),
		tools.CreateQuery(client),

		// Table tools
		tools.CreateTable(client),
		tools.UploadCSVToTable(client),

		// Local SQL helper
		tools.QueryBuilderHelper(),
	)
}

// NewServer constructs the MCP server from configuration. The client is
// built exactly once; nothing re-reads the environment after this.
func NewServer(cfg config.Config) *mcp.Server {
	client := dune.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout)
	return mcp.NewServer(NewToolbox(client))
}

// RunStdio serves MCP over the given streams until EOF.
func RunStdio(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, logger *logrus.Entry) error {
	return mcp.RunStdio(ctx, NewServer(cfg), in, out, logger)
}

// RunHTTP serves MCP over HTTP on the provided address.
func RunHTTP(cfg config.Config, addr string, logger *logrus.Entry) error {
	return mcp.RunHTTP(NewServer(cfg), addr, logger)
}
