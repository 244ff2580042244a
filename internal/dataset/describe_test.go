package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDescribe(t *testing.T) {
	table := mustParse(t, "price\n10\n50\n\n100\n150\n200\n")
	summary, err := table.Describe("price")
	if err != nil {
		t.Fatal(err)
	}
	expect := Summary{Count: 5, Min: 10, Max: 200, Mean: 102, Median: 100}
	if diff := cmp.Diff(expect, summary); diff != "" {
		t.Fatal(diff)
	}
}

func TestDescribeEmpty(t *testing.T) {
	table := mustParse(t, "price\n")
	summary, err := table.Describe("price")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 0 {
		t.Fatal("unexpected summary", summary)
	}
	if _, err := table.Describe("last_review"); err == nil {
		t.Fatal("expected an error here")
	}
}
