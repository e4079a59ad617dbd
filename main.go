// The main package for the gosiwatch executable.
package main

import (
	"github.com/choksense/gosi-watcher/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
