package main

import (
	"os"

	"suitedash/cmd/suitedash/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
