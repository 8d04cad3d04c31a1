package main

import (
	"os"

	"github.com/fieldworks/meritd/cmd/meritd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
