package main

import (
	"os"

	"github.com/Eliorco/Multichecksum/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
