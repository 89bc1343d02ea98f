package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/dune/dune-analytics-mcp-server/internal/app"
	"github.com/dune/dune-analytics-mcp-server/internal/config"
	"github.com/dune/dune-analytics-mcp-server/internal/logging"
)

func main() {
	_ = godotenv.Load()

	httpAddr := flag.String("http", ":3333", "MCP HTTP listen address (e.g., :3333)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New("mcp-server-http")
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	defer cleanup()

	log.Printf("MCP server listening on %s", *httpAddr)
	if err := app.RunHTTP(cfg, *httpAddr, logger); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
