package main

import (
	"fmt"
	"os"

	"github.com/rezonia/ksef-cost-sync/cmd/ksef-cost-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
