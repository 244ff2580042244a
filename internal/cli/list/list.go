package list

import (
	"context"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/cli/root"
	"github.com/pricelab/basiccleaning/internal/output"
)

func init() {
	cmd := root.Command("list", "List artifacts")

	name := cmd.Arg("name", "the name of the artifact to list versions for").String()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		w, err := root.Init()
		if err != nil {
			return errors.Wrap(err, "initializing workspace")
		}
		defer w.Close()

		ctx := context.Background()
		var versions []*artifact.Version
		if *name != "" {
			output.SectionTitle(*name)
			versions, err = w.Store().Versions(ctx, *name)
		} else {
			output.SectionTitle("Artifacts")
			versions, err = w.Store().List(ctx)
		}
		if err != nil {
			return errors.Wrap(err, "listing artifacts")
		}
		for idx, version := range versions {
			output.ArtifactItem(output.ArtifactItemData{
				Ref:         version.Ref(),
				Type:        version.Type,
				Description: version.Description,
				CreatedAt:   version.CreatedAt,
				Size:        version.Size,
				Aliases:     version.Aliases,
				Index:       idx,
				TotalCount:  len(versions),
			})
		}
		return nil
	})
}
