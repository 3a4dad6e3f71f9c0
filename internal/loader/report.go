package loader

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Status of one file in a load run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
)

// Row is one line of the load report.
type Row struct {
	Category string
	Unit     string
	Path     string
	Status   Status
	Detail   string
}

// Report summarizes a load run.
type Report struct {
	Kind    string
	Loaded  int
	Failed  int
	Elapsed time.Duration
	Rows    []Row
}

// Table renders the report as an aligned text table.
func (r Report) Table() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCATEGORY\tSTATUS\tDETAIL\n", strings.ToUpper(r.Kind))
	for _, row := range r.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Unit, row.Category, row.Status, row.Detail)
	}
	_ = w.Flush()
	return b.String()
}

// Summary is the one-line outcome of the run.
func (r Report) Summary() string {
	return fmt.Sprintf("%s loader completed! %d loaded, %d failed (%s)",
		r.Kind, r.Loaded, r.Failed, r.Elapsed.Round(time.Microsecond))
}
