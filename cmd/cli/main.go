package main

import (
	"fmt"
	"os"

	"github.com/crucial707/auditlog-admin/cmd/cli/root"
)

func main() {
	// Execute the root Cobra command
	if err := root.GetRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
