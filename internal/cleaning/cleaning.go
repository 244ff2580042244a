// Package cleaning implements the basic cleaning pipeline: fetch a
// dataset artifact, drop price outliers, normalize the review date and
// publish the result as a new artifact.
package cleaning

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/dataset"
	"github.com/pricelab/basiccleaning/internal/fsx"
	"github.com/pricelab/basiccleaning/internal/model"
)

// JobType is the job type of the runs opened by the pipeline.
const JobType = "basic_cleaning"

const (
	// PriceColumn is the column filtered by price.
	PriceColumn = "price"

	// DateColumn is the column normalized to a canonical date.
	DateColumn = "last_review"
)

// Config is the per-invocation configuration. All fields are MANDATORY.
type Config struct {
	// InputArtifact is the reference of the artifact to clean.
	InputArtifact string

	// OutputArtifact is the name of the produced artifact and
	// the name of the local file written before publishing.
	OutputArtifact string

	// OutputType is the type of the produced artifact.
	OutputType string

	// OutputDescription describes the produced artifact.
	OutputDescription string

	// MinPrice is the inclusive lower price bound.
	MinPrice float64

	// MaxPrice is the inclusive upper price bound.
	MaxPrice float64
}

// Validate returns an error wrapping ErrInvalidConfig when a field is unset.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"input_artifact", c.InputArtifact},
		{"output_artifact", c.OutputArtifact},
		{"output_type", c.OutputType},
		{"output_description", c.OutputDescription},
	}
	for _, field := range fields {
		if field.value == "" {
			return errors.Wrapf(ErrInvalidConfig, "empty %s", field.name)
		}
	}
	if filepath.Base(c.OutputArtifact) != c.OutputArtifact {
		return errors.Wrap(ErrInvalidConfig, "output_artifact must be a file name")
	}
	if err := c.bounds().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

func (c *Config) bounds() dataset.Bounds {
	return dataset.Bounds{Min: c.MinPrice, Max: c.MaxPrice}
}

// Map returns the config as recorded by the tracking run.
func (c *Config) Map() map[string]interface{} {
	return map[string]interface{}{
		"input_artifact":     c.InputArtifact,
		"output_artifact":    c.OutputArtifact,
		"output_type":        c.OutputType,
		"output_description": c.OutputDescription,
		"min_price":          c.MinPrice,
		"max_price":          c.MaxPrice,
	}
}

// Run is the tracking run used by the pipeline.
type Run interface {
	RecordConfig(values map[string]interface{}) error
	UseArtifact(ctx context.Context, ref string) (*artifact.Download, error)
	LogArtifact(ctx context.Context, req artifact.PublishRequest) (*artifact.Version, error)
	SetSummary(key string, value interface{}) error
	Finish(err error) error
}

// RunOpener opens a tracking run for the given job type.
type RunOpener func(ctx context.Context, jobType string) (Run, error)

// Pipeline runs the cleaning. The zero value is invalid; please, make
// sure you initialize all the fields marked as MANDATORY.
type Pipeline struct {
	// OpenRun is the MANDATORY function opening the tracking run.
	OpenRun RunOpener

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// DatePolicy is the OPTIONAL policy for malformed dates; the
	// default is dataset.DatePolicyStrict.
	DatePolicy dataset.DatePolicy

	// AllowMissingPrice OPTIONALLY drops rows with an empty price
	// instead of failing.
	AllowMissingPrice bool

	// MetricsFile is the OPTIONAL path of the Prometheus textfile
	// written when the run ends.
	MetricsFile string

	// WorkDir is the OPTIONAL directory where the output file is
	// written before publishing; the default is the current directory.
	WorkDir string
}

// Result is the outcome of a successful run.
type Result struct {
	Version *artifact.Version
	Filter  dataset.FilterStats
	Dates   dataset.DateStats
}

// Run executes the pipeline. The tracking run is finished and the local
// output file is removed on every return path.
func (p *Pipeline) Run(ctx context.Context, config Config) (result *Result, err error) {
	logger := model.ValidLoggerOrDefault(p.Logger)
	if err := config.Validate(); err != nil {
		return nil, newError(StageInit, err)
	}
	policy := p.DatePolicy
	if policy == "" {
		policy = dataset.DatePolicyStrict
	}

	begin := time.Now()
	m := newMetrics()
	defer func() {
		if p.MetricsFile == "" {
			return
		}
		m.duration.Set(time.Since(begin).Seconds())
		if err == nil {
			m.success.Set(1)
		}
		if werr := m.writeTextfile(p.MetricsFile); werr != nil {
			logger.Warnf("cannot write metrics to %s: %s", p.MetricsFile, werr.Error())
		}
	}()

	run, err := p.OpenRun(ctx, JobType)
	if err != nil {
		return nil, newError(StageInit, err)
	}
	defer func() {
		if ferr := run.Finish(err); ferr != nil {
			logger.Warnf("cannot finish run: %s", ferr.Error())
			if err == nil {
				err = newError(StageCleanup, ferr)
			}
		}
	}()
	record := config.Map()
	record["date_policy"] = string(policy)
	record["allow_missing_price"] = p.AllowMissingPrice
	if err := run.RecordConfig(record); err != nil {
		return nil, newError(StageInit, err)
	}

	logger.Infof("Fetching artifact %s", config.InputArtifact)
	download, err := run.UseArtifact(ctx, config.InputArtifact)
	if err != nil {
		return nil, newError(StageFetch, err)
	}

	logger.Info("Artifact retrieved, reading it locally.")
	table, err := dataset.ReadCSV(download.Path)
	if err != nil {
		return nil, newError(StageLoad, err)
	}
	if err := table.RequireColumns(PriceColumn, DateColumn); err != nil {
		return nil, newError(StageLoad, err)
	}
	m.rowsRead.Add(float64(table.Len()))
	if before, err := table.Describe(PriceColumn); err == nil {
		logger.Debugf("price before cleaning: %+v", before)
	}

	logger.Info("Data read. Starting cleansing.")
	filtered, fstats, err := table.FilterRange(PriceColumn, config.bounds(), p.AllowMissingPrice)
	if err != nil {
		return nil, newError(StageFilter, err)
	}
	m.rowsKept.Add(float64(fstats.Kept))
	m.rowsDropped.WithLabelValues("out_of_range").Add(float64(fstats.OutOfRange))
	m.rowsDropped.WithLabelValues("missing_price").Add(float64(fstats.MissingValues))
	logger.Debugf("kept %d rows out of %d", fstats.Kept, fstats.Read)

	dstats, err := filtered.NormalizeDates(DateColumn, policy)
	if err != nil {
		return nil, newError(StageTransform, err)
	}
	m.nullDates.Add(float64(dstats.Nulls))
	if dstats.Coerced > 0 {
		logger.Warnf("coerced %d malformed %s values to null", dstats.Coerced, DateColumn)
	}

	logger.Infof("Data cleansed. Saving and uploading %s artifact.", config.OutputArtifact)
	localPath := filepath.Join(p.WorkDir, config.OutputArtifact)
	defer func() {
		if rerr := fsx.RemoveIfExists(localPath); rerr != nil {
			logger.Warnf("cannot remove %s: %s", localPath, rerr.Error())
			if err == nil {
				result = nil
				err = newError(StageCleanup, errors.Wrap(ErrFilesystem, rerr.Error()))
			}
		}
	}()
	if err := filtered.WriteCSV(localPath); err != nil {
		return nil, newError(StageSave, errors.Wrap(ErrFilesystem, err.Error()))
	}
	version, err := run.LogArtifact(ctx, artifact.PublishRequest{
		Name:        config.OutputArtifact,
		Type:        config.OutputType,
		Description: config.OutputDescription,
		Path:        localPath,
	})
	if err != nil {
		return nil, newError(StagePublish, err)
	}

	logger.Info("Cleaned data artifact registered. Tidying up temp files.")
	// the price column was checked when loading so this cannot fail
	after, _ := filtered.Describe(PriceColumn)
	summary := map[string]interface{}{
		"input":         download.Version.Ref(),
		"output":        version.Ref(),
		"rows_read":     fstats.Read,
		"rows_kept":     fstats.Kept,
		"rows_dropped":  fstats.OutOfRange + fstats.MissingValues,
		"null_dates":    dstats.Nulls,
		"coerced_dates": dstats.Coerced,
		"price_after":   after,
	}
	for key, value := range summary {
		if err := run.SetSummary(key, value); err != nil {
			return nil, newError(StagePublish, err)
		}
	}
	logger.Info("DONE - CLEANING")
	return &Result{Version: version, Filter: fstats, Dates: dstats}, nil
}
