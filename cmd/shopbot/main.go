package main

import (
	"fmt"
	"os"

	"github.com/m3rciful/shopbot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
