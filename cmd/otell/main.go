// Package main is the entry point for otell.
package main

import "github.com/runmat-org/otell/internal/cli"

func main() {
	cli.Execute()
}
