// Package root contains the flags and the initialization shared by the
// command line tools.
package root

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/pricelab/basiccleaning/internal/log/handlers/cli"
	"github.com/pricelab/basiccleaning/internal/version"
	"github.com/pricelab/basiccleaning/internal/workspace"
	"github.com/pricelab/basiccleaning/utils"
)

// Cmd is the root command
var Cmd = kingpin.New("artifactctl", "Manage the artifact store and the tracking runs")

// Command is syntax sugar for defining sub-commands
var Command = Cmd.Command

// Init should be called by all subcommand that care to have a workspace
var Init func() (*workspace.Workspace, error)

func init() {
	Init = Bind(Cmd)
}

// Bind registers the --home, --config and --verbose flags on app and
// returns the function creating the workspace. The returned function
// is only usable after the flags have been parsed.
func Bind(app *kingpin.Application) func() (*workspace.Workspace, error) {
	home := app.Flag("home", "Set a custom home directory").Envar(utils.HomeEnvVariable).String()
	configPath := app.Flag("config", "Set a custom config file path").Short('c').String()
	verbose := app.Flag("verbose", "Enable verbose log output.").Short('v').Bool()

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		log.SetHandler(cli.Default)
		if *verbose {
			log.SetLevel(log.DebugLevel)
			log.Debugf("%s version %s", app.Name, version.Version)
		}
		return nil
	})

	return func() (*workspace.Workspace, error) {
		homePath := *home
		if homePath == "" {
			var err error
			if homePath, err = utils.GetHome(); err != nil {
				return nil, err
			}
		}
		w := workspace.New(*configPath, homePath)
		if err := w.Init(); err != nil {
			return nil, err
		}
		return w, nil
	}
}
