package main

import (
	"os"

	"github.com/commitward/commitward/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
