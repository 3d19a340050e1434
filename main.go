// The main package for the embedscraper executable.
package main

import (
	"github.com/JakeFAU/embedscraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
