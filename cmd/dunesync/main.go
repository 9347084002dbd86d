package main

import (
	"github.com/surgencelabs/dune-sync/cmd"
)

func main() {
	cmd.Execute()
}
