package main

import (
	"os"

	"github.com/apex/log"
	"github.com/pricelab/basiccleaning/internal/cli/clean"
)

func main() {
	if err := clean.Run(os.Args[1:]); err != nil {
		log.WithError(err).Error("basic cleaning failed")
		os.Exit(1)
	}
}
