// Package output emits the typed logs rendered by the CLI log handler.
package output

import (
	"time"

	"github.com/apex/log"
)

// SectionTitle is the title of a section
func SectionTitle(text string) {
	log.WithFields(log.Fields{
		"type":  "section_title",
		"title": text,
	}).Info(text)
}

// ArtifactItemData is the metadata about an artifact version
type ArtifactItemData struct {
	Ref         string
	Type        string
	Description string
	CreatedAt   time.Time
	Size        int64
	Aliases     []string
	Index       int
	TotalCount  int
}

// ArtifactItem logs an artifact version
func ArtifactItem(item ArtifactItemData) {
	log.WithFields(log.Fields{
		"type":          "artifact_item",
		"ref":           item.Ref,
		"artifact_type": item.Type,
		"description":   item.Description,
		"created_at":    item.CreatedAt,
		"size":          item.Size,
		"aliases":       item.Aliases,
		"index":         item.Index,
		"total_count":   item.TotalCount,
	}).Info("artifact item")
}

// RunItemData is the metadata about a tracking run
type RunItemData struct {
	UUID       string
	JobType    string
	State      string
	Failure    string
	StartTime  time.Time
	Runtime    float64
	Index      int
	TotalCount int
}

// RunItem logs a tracking run
func RunItem(run RunItemData) {
	log.WithFields(log.Fields{
		"type":        "run_item",
		"uuid":        run.UUID,
		"job_type":    run.JobType,
		"state":       run.State,
		"failure":     run.Failure,
		"start_time":  run.StartTime,
		"runtime":     run.Runtime,
		"index":       run.Index,
		"total_count": run.TotalCount,
	}).Info("run item")
}

// Table logs a key value table
func Table(fields log.Fields) {
	fields["type"] = "table"
	log.WithFields(fields).Info("table")
}
