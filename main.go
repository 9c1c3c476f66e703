package main

import (
	"github.com/tetelio/asset-pipeline/cmd"
)

func main() {
	// Execute command-line interface; should be the last call in main()
	cmd.Execute()
}
