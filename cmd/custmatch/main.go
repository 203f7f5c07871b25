// Package main provides the entry point for the custmatch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/custmatch/cmd/custmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
