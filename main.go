package main

import (
	"os"

	"github.com/abhisek/ccgrun/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
