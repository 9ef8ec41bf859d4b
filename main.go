package main

import (
	"os"

	"github.com/bizassist/bizassist/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
