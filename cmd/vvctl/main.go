package main

import (
	"os"

	"github.com/okian/visualverse/cmd/vvctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
