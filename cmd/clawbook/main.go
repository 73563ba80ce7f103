package main

import (
	"os"

	"github.com/AnkitM1410/Clawbook-Human/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
