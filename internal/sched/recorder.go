package sched

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Recorder prints scheduler events and optionally logs them as CSV.
type Recorder struct {
	out io.Writer // nil = no human-readable output

	csvFile   *os.File
	csvWriter *csv.Writer

	counts map[EventKind]int
}

// NewRecorder creates a Recorder printing one line per event to out.
func NewRecorder(out io.Writer) *Recorder {
	return &Recorder{
		out:    out,
		counts: make(map[EventKind]int),
	}
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (r *Recorder) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	r.csvFile = f
	return r.EnableCSV(f)
}

// EnableCSV writes CSV records to w, starting with the header.
func (r *Recorder) EnableCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "event", "task_type", "task_id", "duration_ms", "detail"}); err != nil {
		return err
	}
	cw.Flush()
	r.csvWriter = cw
	return cw.Error()
}

// Run consumes events until the channel is closed or ctx ends, then flushes
// and closes the CSV log.
func (r *Recorder) Run(ctx context.Context, events <-chan Event) error {
loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			r.handleEvent(ev)
		case <-ctx.Done():
			break loop
		}
	}

	if r.csvWriter != nil {
		r.csvWriter.Flush()
		if err := r.csvWriter.Error(); err != nil {
			return err
		}
	}
	if r.csvFile != nil {
		return r.csvFile.Close()
	}
	return nil
}

// Count returns how many events of kind were recorded. Only valid after Run returns.
func (r *Recorder) Count(kind EventKind) int { return r.counts[kind] }

func (r *Recorder) handleEvent(ev Event) {
	r.counts[ev.Kind]++

	detail := ""
	if ev.Err != nil {
		// keep CSV and terminal output on one line
		detail = strings.ReplaceAll(ev.Err.Error(), "\n", " | ")
	}

	if r.out != nil {
		// an auxiliary function to center the event kind in the output
		center := func(str string, width int) string {
			spaces := (width - len(str)) / 2
			return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
		}

		msg := fmt.Sprintf("%s = [%s] => Type: %s, Task: %s",
			ev.Time.Format("Jan 02 15:04:05.000"),
			center(ev.Kind.String(), 10),
			ev.Type,
			ev.TaskID.String()[:8],
		)
		if ev.Duration > 0 {
			msg += fmt.Sprintf(", ran %s", ev.Duration.Round(time.Microsecond))
		}
		if detail != "" {
			msg += ", error: " + detail
		}
		fmt.Fprintln(r.out, msg)
	}

	if r.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			ev.Kind.String(),
			string(ev.Type),
			ev.TaskID.String(),
			strconv.FormatFloat(float64(ev.Duration)/float64(time.Millisecond), 'f', 3, 64),
			detail,
		}
		r.csvWriter.Write(rec)
		r.csvWriter.Flush()
	}
}
