package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dune/dune-analytics-mcp-server/internal/app"
	"github.com/dune/dune-analytics-mcp-server/internal/config"
	"github.com/dune/dune-analytics-mcp-server/internal/logging"
)

func main() {
	_ = godotenv.Load()

	httpAddr := flag.String("http", envOr("MCP_HTTP_ADDR", ""), "serve MCP over HTTP on this address instead of stdio (e.g., :3333)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New("mcp-server")
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	defer cleanup()

	if *httpAddr != "" {
		if err := app.RunHTTP(cfg, *httpAddr, logger); err != nil {
			log.Fatalf("MCP server error: %v", err)
		}
		return
	}

	logger.Info("serving MCP on stdio")
	if err := app.RunStdio(context.Background(), cfg, os.Stdin, os.Stdout, logger); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
