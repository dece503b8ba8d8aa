// Package resultio writes and reads the sweep's result rows as CSV, the
// way sim/component's CSVByteRecorder writes its own trace format: a fixed
// header row written once, one data row per record, flushed as it goes so a
// killed sweep still leaves a readable partial file.
package resultio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/arqlab/srarq/simulation"
)

// Header is the exact §6 column order, plus the supplemental timed_out and
// error columns carried alongside it. error is empty for every trial that
// completed normally; WriteFailure is the only thing that populates it.
var Header = []string{
	"w", "l", "run_id", "goodput_mbps", "retransmissions",
	"avg_rtt_ns", "utilization", "buffer_events", "duration_ns", "timed_out", "error",
}

// Writer appends simulation.Row values to a CSV file, flushing after every
// row so a sweep killed mid-run leaves every completed trial on disk.
type Writer struct {
	output *csv.Writer
	closer io.Closer
}

// Create opens path for writing and emits the header row immediately.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("resultio: creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("resultio: writing header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("resultio: flushing header: %w", err)
	}
	return &Writer{output: w, closer: f}, nil
}

// WriteRow appends one result row and flushes immediately.
func (w *Writer) WriteRow(row simulation.Row) error {
	return w.writeRecord([]string{
		strconv.Itoa(row.W),
		strconv.Itoa(row.L),
		strconv.Itoa(row.RunID),
		strconv.FormatFloat(row.GoodputMbps, 'g', -1, 64),
		strconv.Itoa(row.Retransmissions),
		strconv.FormatInt(int64(row.AvgRTT), 10),
		strconv.FormatFloat(row.Utilization, 'g', -1, 64),
		strconv.Itoa(row.BufferEvents),
		strconv.FormatInt(int64(row.Duration), 10),
		strconv.FormatBool(row.TimedOut),
		"",
	})
}

// WriteFailure appends a flagged row for a trial that never produced a
// simulation.Row — its numeric columns are zeroed and the error column
// carries cause, so a sweep's CSV records every attempted (W, L, run_id)
// point even when the trial panicked or was rejected before it ran.
func (w *Writer) WriteFailure(wVal, l, runID int, cause error) error {
	return w.writeRecord([]string{
		strconv.Itoa(wVal),
		strconv.Itoa(l),
		strconv.Itoa(runID),
		"0", "0", "0", "0", "0", "0", "false",
		cause.Error(),
	})
}

func (w *Writer) writeRecord(record []string) error {
	if err := w.output.Write(record); err != nil {
		return fmt.Errorf("resultio: writing row: %w", err)
	}
	w.output.Flush()
	return w.output.Error()
}

// Close closes the underlying file. Any buffered CSV data was already
// flushed by the preceding WriteRow calls.
func (w *Writer) Close() error {
	return w.closer.Close()
}

// ReadAll loads every successfully completed result row from a CSV file
// written by Writer, silently skipping rows WriteFailure flagged (their
// zeroed numeric columns would otherwise pollute an average computed over
// them). Use ReadAllIncludingFailures to see the flagged rows too.
func ReadAll(path string) ([]simulation.Row, error) {
	rows, failed, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	out := make([]simulation.Row, 0, len(rows))
	for i, row := range rows {
		if failed[i] {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadAllIncludingFailures loads every row, completed or flagged, alongside
// a parallel slice reporting which ones were flagged by WriteFailure.
func ReadAllIncludingFailures(path string) ([]simulation.Row, []bool, error) {
	return readRecords(path)
}

func readRecords(path string) ([]simulation.Row, []bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resultio: opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("resultio: parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("resultio: %s has no header row", path)
	}
	if !headerMatches(records[0]) {
		return nil, nil, fmt.Errorf("resultio: %s has an unrecognized header: %v", path, records[0])
	}

	rows := make([]simulation.Row, 0, len(records)-1)
	failed := make([]bool, 0, len(records)-1)
	for _, record := range records[1:] {
		row, err := decodeRow(record)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
		failed = append(failed, record[len(Header)-1] != "")
	}
	return rows, failed, nil
}

func headerMatches(got []string) bool {
	if len(got) != len(Header) {
		return false
	}
	for i, h := range Header {
		if got[i] != h {
			return false
		}
	}
	return true
}

func decodeRow(record []string) (simulation.Row, error) {
	if len(record) != len(Header) {
		return simulation.Row{}, fmt.Errorf("resultio: expected %d columns, got %d", len(Header), len(record))
	}
	w, err := strconv.Atoi(record[0])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing w: %w", err)
	}
	l, err := strconv.Atoi(record[1])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing l: %w", err)
	}
	runID, err := strconv.Atoi(record[2])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing run_id: %w", err)
	}
	goodput, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing goodput_mbps: %w", err)
	}
	retransmissions, err := strconv.Atoi(record[4])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing retransmissions: %w", err)
	}
	avgRTTNanos, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing avg_rtt_ns: %w", err)
	}
	utilization, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing utilization: %w", err)
	}
	bufferEvents, err := strconv.Atoi(record[7])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing buffer_events: %w", err)
	}
	durationNanos, err := strconv.ParseInt(record[8], 10, 64)
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing duration_ns: %w", err)
	}
	timedOut, err := strconv.ParseBool(record[9])
	if err != nil {
		return simulation.Row{}, fmt.Errorf("resultio: parsing timed_out: %w", err)
	}
	return simulation.Row{
		W:               w,
		L:               l,
		RunID:           runID,
		GoodputMbps:     goodput,
		Retransmissions: retransmissions,
		AvgRTT:          time.Duration(avgRTTNanos),
		Utilization:     utilization,
		BufferEvents:    bufferEvents,
		Duration:        time.Duration(durationNanos),
		TimedOut:        timedOut,
	}, nil
}
