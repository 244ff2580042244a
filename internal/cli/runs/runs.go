package runs

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/cli/root"
	"github.com/pricelab/basiccleaning/internal/output"
)

func init() {
	cmd := root.Command("runs", "List the most recent tracking runs")

	limit := cmd.Flag("limit", "Maximum number of runs to list").Default("20").Int()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		w, err := root.Init()
		if err != nil {
			return errors.Wrap(err, "initializing workspace")
		}
		defer w.Close()

		runs, err := w.DB().ListRuns(*limit)
		if err != nil {
			return errors.Wrap(err, "listing runs")
		}
		output.SectionTitle("Runs")
		for idx, run := range runs {
			output.RunItem(output.RunItemData{
				UUID:       run.UUID,
				JobType:    run.JobType,
				State:      run.State,
				Failure:    run.Failure.String,
				StartTime:  run.StartTime,
				Runtime:    run.Runtime,
				Index:      idx,
				TotalCount: len(runs),
			})
		}
		return nil
	})
}
