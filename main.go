// The main package for the boletin-crawler executable.
package main

import (
	"github.com/transparencia-pba/boletin-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
