package main

import (
	"os"

	"github.com/stellarpass/stellarpass/cmd/stellarpass/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
