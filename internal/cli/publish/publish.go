// Package publish implements the command uploading a local file as a
// new artifact version.
package publish

import (
	"context"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/cli/root"
)

// JobType is the job type of the runs opened by publish.
const JobType = "upload_artifact"

func init() {
	cmd := root.Command("publish", "Publish a local file as a new artifact version")
	file := cmd.Arg("file", "the file to publish").Required().ExistingFile()
	name := cmd.Flag("name", "Name of the artifact; defaults to the file name").String()
	kind := cmd.Flag("type", "Type of the artifact").Required().String()
	description := cmd.Flag("description", "Description of the artifact").Default("").String()
	aliases := cmd.Flag("alias", "Additional alias for the new version").Strings()

	cmd.Action(func(_ *kingpin.ParseContext) (err error) {
		w, err := root.Init()
		if err != nil {
			return errors.Wrap(err, "initializing workspace")
		}
		defer w.Close()

		ctx := context.Background()
		run, err := w.Tracker().Init(ctx, JobType)
		if err != nil {
			return err
		}
		defer func() {
			if ferr := run.Finish(err); ferr != nil {
				log.WithError(ferr).Warn("failed to finish run")
			}
		}()

		artifactName := *name
		if artifactName == "" {
			artifactName = filepath.Base(*file)
		}
		if err := run.RecordConfig(map[string]interface{}{
			"file":        *file,
			"name":        artifactName,
			"type":        *kind,
			"description": *description,
			"aliases":     *aliases,
		}); err != nil {
			return err
		}
		version, err := run.LogArtifact(ctx, artifact.PublishRequest{
			Name:        artifactName,
			Type:        *kind,
			Description: *description,
			Path:        *file,
			Aliases:     *aliases,
		})
		if err != nil {
			return err
		}
		log.Infof("Published %s", version.Ref())
		return nil
	})
}
