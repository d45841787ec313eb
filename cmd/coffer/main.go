// Package main provides the entry point for the coffer CLI.
package main

import "github.com/cofferlabs/coffer/cmd/coffer/cmd"

func main() {
	cmd.Execute()
}
