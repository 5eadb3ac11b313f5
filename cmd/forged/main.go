package main

import (
	"os"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
