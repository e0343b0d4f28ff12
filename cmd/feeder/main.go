package main

import (
	"os"

	"github.com/argus-labs/oracle-feeder/cmd/feeder/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
