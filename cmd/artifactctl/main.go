package main

import (
	"os"

	"github.com/apex/log"
	"github.com/pricelab/basiccleaning/internal/cli/app"
	_ "github.com/pricelab/basiccleaning/internal/cli/list"
	_ "github.com/pricelab/basiccleaning/internal/cli/publish"
	_ "github.com/pricelab/basiccleaning/internal/cli/runs"
	_ "github.com/pricelab/basiccleaning/internal/cli/show"
	_ "github.com/pricelab/basiccleaning/internal/cli/version"
)

func main() {
	if err := app.Run(); err != nil {
		log.WithError(err).Error("artifactctl failed")
		os.Exit(1)
	}
}
