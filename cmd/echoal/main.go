// Package main is the entry point for the echoal backend.
package main

import (
	"fmt"
	"os"

	"github.com/comigor/echoal-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
