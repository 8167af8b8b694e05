// Package main provides the formprefill CLI.
package main

import "github.com/mesh-intelligence/formprefill/internal/cli"

func main() {
	cli.Execute()
}
