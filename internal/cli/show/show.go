package show

import (
	"context"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/cli/root"
	"github.com/pricelab/basiccleaning/internal/output"
)

func init() {
	cmd := root.Command("show", "Show an artifact version and its lineage")

	ref := cmd.Arg("ref", "the artifact reference, e.g. sample.csv:latest").Required().String()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		w, err := root.Init()
		if err != nil {
			return errors.Wrap(err, "initializing workspace")
		}
		defer w.Close()

		ctx := context.Background()
		version, err := w.Store().Resolve(ctx, *ref)
		if err != nil {
			return err
		}
		output.SectionTitle(version.Ref())
		output.ArtifactItem(output.ArtifactItemData{
			Ref:         version.Ref(),
			Type:        version.Type,
			Description: version.Description,
			CreatedAt:   version.CreatedAt,
			Size:        version.Size,
			Aliases:     version.Aliases,
			TotalCount:  1,
		})
		output.Table(log.Fields{
			"file":    version.FileName,
			"digest":  version.Digest,
			"aliases": strings.Join(version.Aliases, ","),
		})

		entries, err := w.Store().Lineage(ctx, version)
		if err != nil {
			return errors.Wrap(err, "listing lineage")
		}
		if len(entries) > 0 {
			output.SectionTitle("Lineage")
		}
		for _, entry := range entries {
			log.WithFields(log.Fields{
				"run":      entry.RunUUID,
				"job_type": entry.JobType,
				"state":    entry.State,
			}).Infof("%s of", entry.Direction)
		}
		return nil
	})
}
