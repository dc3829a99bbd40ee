package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/querypilot/querypilot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
