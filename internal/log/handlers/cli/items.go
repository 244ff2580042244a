package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/pricelab/basiccleaning/utils"
)

func formatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%dB", size)
	} else if size < 1024*1024 {
		return fmt.Sprintf("%.1fK", float64(size)/1024.0)
	} else if size < 1024*1024*1024 {
		return fmt.Sprintf("%.1fM", float64(size)/(1024.0*1024.0))
	}
	return fmt.Sprintf("%.1fG", float64(size)/(1024.0*1024.0*1024.0))
}

func logArtifactItem(w io.Writer, f log.Fields) error {
	colWidth := 24

	ref := f.Get("ref").(string)
	kind := f.Get("artifact_type").(string)
	createdAt := f.Get("created_at").(time.Time)
	size := f.Get("size").(int64)
	aliases := f.Get("aliases").([]string)
	description := f.Get("description").(string)
	index := f.Get("index").(int)
	totalCount := f.Get("total_count").(int)

	if index == 0 {
		fmt.Fprint(w, "┏"+strings.Repeat("━", colWidth*2+2)+"┓\n")
	} else {
		fmt.Fprint(w, "┢"+strings.Repeat("━", colWidth*2+2)+"┪\n")
	}
	fmt.Fprintf(w, "┃ %s ┃\n", utils.RightPad(ref, colWidth*2))
	fmt.Fprint(w, "┡"+strings.Repeat("━", colWidth*2+2)+"┩\n")
	fmt.Fprintf(w, "│ %s %s│\n",
		utils.RightPad(kind, colWidth),
		utils.RightPad(createdAt.Format(time.RFC822), colWidth))
	fmt.Fprintf(w, "│ %s %s│\n",
		utils.RightPad(formatSize(size), colWidth),
		utils.RightPad(strings.Join(aliases, ","), colWidth))
	if description != "" {
		for _, line := range utils.WrapLines(description, uint(colWidth*2)) {
			fmt.Fprintf(w, "│ %s │\n", utils.RightPad(line, colWidth*2))
		}
	}
	if index == totalCount-1 {
		fmt.Fprint(w, "└"+strings.Repeat("─", colWidth*2+2)+"┘\n")
	}
	return nil
}

func logRunItem(w io.Writer, f log.Fields) error {
	colWidth := 24

	uuid := f.Get("uuid").(string)
	jobType := f.Get("job_type").(string)
	state := f.Get("state").(string)
	startTime := f.Get("start_time").(time.Time)
	runtime := f.Get("runtime").(float64)
	failure := f.Get("failure").(string)
	index := f.Get("index").(int)
	totalCount := f.Get("total_count").(int)

	if index == 0 {
		fmt.Fprint(w, "┏"+strings.Repeat("━", colWidth*2+2)+"┓\n")
	} else {
		fmt.Fprint(w, "┢"+strings.Repeat("━", colWidth*2+2)+"┪\n")
	}
	fmt.Fprintf(w, "┃ %s ┃\n", utils.RightPad(uuid, colWidth*2))
	fmt.Fprint(w, "┡"+strings.Repeat("━", colWidth*2+2)+"┩\n")
	fmt.Fprintf(w, "│ %s %s│\n",
		utils.RightPad(jobType, colWidth),
		utils.RightPad(startTime.Format(time.RFC822), colWidth))
	fmt.Fprintf(w, "│ %s %s│\n",
		utils.RightPad(state, colWidth),
		utils.RightPad(fmt.Sprintf("%.2fs", runtime), colWidth))
	if failure != "" {
		for _, line := range utils.WrapLines(failure, uint(colWidth*2)) {
			fmt.Fprintf(w, "│ %s │\n", utils.RightPad(line, colWidth*2))
		}
	}
	if index == totalCount-1 {
		fmt.Fprint(w, "└"+strings.Repeat("─", colWidth*2+2)+"┘\n")
	}
	return nil
}
