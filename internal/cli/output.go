package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gyaneshwarpardhi/orchestrate/internal/engine"
)

// Output renders plans and reports as text tables or JSON.
type Output struct {
	jsonMode bool
	w        io.Writer // data
	errW     io.Writer // messages
}

// NewOutput creates an Output writing data to w and messages to errW.
func NewOutput(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Table writes rows under headers, aligned with tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// JSON writes v indented.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Message writes a line to the message stream.
func (o *Output) Message(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Plan prints the execution order.
func (o *Output) Plan(order []string) {
	if o.jsonMode {
		o.JSON(map[string][]string{"order": order})
		return
	}
	fmt.Fprintf(o.w, "Running in the following order:\n%s\n\n", strings.Join(order, ", "))
}

// Report prints exit codes for executed routines and the skipped set.
func (o *Output) Report(rep *engine.Report) {
	if o.jsonMode {
		o.JSON(rep)
		return
	}

	fmt.Fprintln(o.w, "Return code for each process:")
	rows := make([][]string, 0, len(rep.Results))
	for _, out := range rep.Outcomes {
		if out.State != engine.StateRan {
			continue
		}
		rows = append(rows, []string{out.Name, strconv.Itoa(out.ExitCode), out.Duration.Round(time.Millisecond).String()})
	}
	o.Table([]string{"ROUTINE", "EXIT", "DURATION"}, rows)

	if len(rep.Skipped) == 0 {
		return
	}
	names := make([]string, 0, len(rep.Skipped))
	for name := range rep.Skipped {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(o.w, "\nTotal skipped: %d\n", len(names))
	fmt.Fprintln(o.w, "Routines were skipped because a dependency failed or because they are in the skip list.")
	fmt.Fprintln(o.w, "To force a routine to run, list it under [ignoreDepErrors]. To always skip it, list it under [skip].")
	skipped := make([][]string, len(names))
	for i, name := range names {
		skipped[i] = []string{name, string(rep.Skipped[name])}
	}
	o.Table([]string{"ROUTINE", "REASON"}, skipped)
}
