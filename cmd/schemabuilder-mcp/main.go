package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmax-ai/schemabuilder/pkg/mcp"
)

func main() {
	addr := os.Getenv("SCHEMABUILDER_URL")
	if addr == "" {
		addr = "http://127.0.0.1:8090"
	}
	flag.StringVar(&addr, "addr", addr, "schemabuilder-d base URL")
	flag.Parse()

	// stdout carries the protocol; diagnostics go to stderr.
	if err := mcp.NewServer(addr).Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
		os.Exit(1)
	}
}
