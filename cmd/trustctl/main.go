package main

import (
	"os"

	"github.com/veritas-dev/trust-ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
