// Package main provides the gtfstables CLI.
package main

import "github.com/mesh-intelligence/gtfstables/internal/cli"

func main() {
	cli.Execute()
}
