// Package clean implements the basiccleaning command: it fetches a raw
// dataset artifact, drops the price outliers, normalizes the review
// dates and publishes the cleaned dataset as a new artifact.
package clean

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/cleaning"
	"github.com/pricelab/basiccleaning/internal/cli/root"
	"github.com/pricelab/basiccleaning/internal/log/handlers/cli"
	"github.com/pricelab/basiccleaning/internal/output"
	"github.com/pricelab/basiccleaning/internal/version"
	"github.com/pricelab/basiccleaning/internal/workspace"
)

// Cmd is the basiccleaning command
var Cmd = kingpin.New("basiccleaning", "A very basic data cleaning")

// Init creates the workspace once the flags are parsed
var Init func() (*workspace.Workspace, error)

func init() {
	Init = root.Bind(Cmd)
	Cmd.Version(version.Version)

	var config cleaning.Config
	Cmd.Flag("input_artifact", "Fully-qualified name for the input artifact").
		Required().StringVar(&config.InputArtifact)
	Cmd.Flag("output_artifact", "Name for the output artifact").
		Required().StringVar(&config.OutputArtifact)
	Cmd.Flag("output_type", "Type of the output artifact").
		Required().StringVar(&config.OutputType)
	Cmd.Flag("output_description", "Description of the output artifact").
		Required().StringVar(&config.OutputDescription)
	Cmd.Flag("min_price", "Minimum price to consider").
		Required().Float64Var(&config.MinPrice)
	Cmd.Flag("max_price", "Maximum price to consider").
		Required().Float64Var(&config.MaxPrice)

	Cmd.Action(func(_ *kingpin.ParseContext) error {
		cli.Default.Timestamps = true
		w, err := Init()
		if err != nil {
			return errors.Wrap(err, "initializing workspace")
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		result, err := w.NewPipeline().Run(ctx, config)
		if err != nil {
			return err
		}
		output.Table(log.Fields{
			"artifact":     result.Version.Ref(),
			"rows_read":    result.Filter.Read,
			"rows_kept":    result.Filter.Kept,
			"out_of_range": result.Filter.OutOfRange,
			"null_dates":   result.Dates.Nulls,
		})
		return nil
	})
}

// Run parses args and runs the cleaning.
func Run(args []string) error {
	_, err := Cmd.Parse(args)
	return err
}
