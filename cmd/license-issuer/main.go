package main

import (
	"os"

	"glowcli/cmd/license-issuer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
