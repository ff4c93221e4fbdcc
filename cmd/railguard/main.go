package main

import (
	"os"

	"github.com/lmoreno/railguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
