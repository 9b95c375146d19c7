package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rmax-ai/schemabuilder/pkg/client"
)

func main() {
	addr := os.Getenv("SCHEMABUILDER_URL")
	if addr == "" {
		addr = "http://127.0.0.1:8090"
	}
	flag.StringVar(&addr, "addr", addr, "schemabuilder-d base URL")
	flag.Parse()

	c := client.NewClient(addr)
	c.SetBackoff(client.DefaultBackoff(), 1)

	p := tea.NewProgram(initialModel(c), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
