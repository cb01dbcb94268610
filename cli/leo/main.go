package main

import (
	"os"

	leocmder "github.com/papercomputeco/leo/cmd/leo"
)

func main() {
	cmd := leocmder.NewLeoCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
