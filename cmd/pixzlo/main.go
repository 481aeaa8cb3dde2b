package main

import (
	"os"

	"github.com/pixzlo/pixzlo-bridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
