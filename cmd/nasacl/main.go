// Package main provides the nasacl CLI.
package main

import "github.com/mesh-intelligence/nasacl/internal/cli"

func main() {
	cli.Execute()
}
