// The main package for the bdecrawler executable.
package main

import (
	"github.com/JakeFAU/bde-document-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
