package main

import (
	"os"

	"github.com/jdh4601/ClosetBot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
