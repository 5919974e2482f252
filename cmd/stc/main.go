package main

import (
	"os"

	"github.com/plc-foundry/go-stc/cmd/stc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
