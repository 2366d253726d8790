// The main package for the hdock-batch executable.
package main

import (
	"github.com/SidSin0809/hdock-batch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
