package app

import (
	"os"

	"github.com/pricelab/basiccleaning/internal/cli/root"
	"github.com/pricelab/basiccleaning/internal/version"
)

// Run the app. This is the main app entry point
func Run() error {
	root.Cmd.Version(version.Version)
	_, err := root.Cmd.Parse(os.Args[1:])
	return err
}
