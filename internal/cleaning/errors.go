package cleaning

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/pricelab/basiccleaning/internal/artifact"
	"github.com/pricelab/basiccleaning/internal/dataset"
)

// The error taxonomy of a cleaning run. Use errors.Is to classify
// the error returned by Pipeline.Run.
var (
	ErrArtifactNotFound = artifact.ErrNotFound
	ErrParse            = dataset.ErrParse
	ErrDateParse        = dataset.ErrDateParse
	ErrPublish          = artifact.ErrPublish
	ErrFilesystem       = errors.New("filesystem error")
	ErrInvalidConfig    = errors.New("invalid config")
)

// Stages of the pipeline, as reported by Error.
const (
	StageInit      = "init"
	StageFetch     = "fetch"
	StageLoad      = "load"
	StageFilter    = "filter"
	StageTransform = "transform"
	StageSave      = "save"
	StagePublish   = "publish"
	StageCleanup   = "cleanup"
)

// Error is the error returned by Pipeline.Run.
type Error struct {
	Stage string
	Err   error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(stage string, err error) *Error {
	return &Error{Stage: stage, Err: err}
}
