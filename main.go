// main.go
//
// Entry point for the graphrat-sim CLI; subcommands live in cmd/root.go

package main

import (
	"github.com/graphrat-sim/graphrat-sim/cmd"
)

func main() {
	cmd.Execute()
}
