package main

import (
	"os"

	veracmder "github.com/papercomputeco/vera/cmd/vera"
)

func main() {
	cmd := veracmder.NewVeraCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
