package main

import (
	"os"

	"github.com/filesmanager/api/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
