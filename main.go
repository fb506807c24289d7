// Package main is the entry point of the asana2sql CLI, which mirrors the
// tasks of an Asana project into a SQL table.
package main

import (
	"asana2sql/cli/cmd"
)

func main() {
	cmd.Execute()
}
