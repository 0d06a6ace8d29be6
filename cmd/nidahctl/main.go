package main

import (
	"os"

	"github.com/nidahp/portal-api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
