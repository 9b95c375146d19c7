// Package main provides the schemabuilder operator CLI.
//
// Usage:
//
//	schemabuilder [flags] <command> [args]
//
// Commands:
//
//	run      - Run one fetch, build and materialize cycle against a database
//	build    - Build patterns from a local JSON-LD file and print a summary
//	guard    - Inspect or reset the run guard
//	schemas  - List stored schemas
//	export   - Export schemas or properties as CSV or JSON
//	archive  - List archived vocabulary documents
package main

import (
	"fmt"
	"os"

	"github.com/rmax-ai/schemabuilder/cmd/schemabuilder/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
