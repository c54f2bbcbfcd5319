package main

import (
	"os"

	"github.com/mmynk/resultgroups/cmd/groupctl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
