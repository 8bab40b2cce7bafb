// Package main is the entry point for the srcmirror CLI tool.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/srcmirror/srcmirror/internal/cli"
)

func main() {
	godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
