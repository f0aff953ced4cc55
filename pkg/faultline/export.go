// export.go serializes resident error records to JSON or CSV files.

package faultline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// exportEnvelope is the JSON export document.
type exportEnvelope struct {
	ExportedAt  time.Time     `json:"exported_at"`
	TotalErrors int           `json:"total_errors"`
	Stats       Stats         `json:"statistics"`
	Errors      []ErrorRecord `json:"errors"`
}

// exportColumns is the CSV header, one row per record. Every ErrorRecord
// field has a column, in struct order; context fields are flattened and
// AdditionalData is embedded as a JSON object column.
var exportColumns = []string{
	"id", "fingerprint", "severity", "category", "message", "exception_type",
	"stack_trace", "count", "first_seen", "last_seen", "resolved",
	"resolution_note", "resolved_at", "function_name", "module_name",
	"file_path", "line_number", "user_id", "session_id", "request_id",
	"additional_data",
}

// ExportErrors writes all resident records to path in the given format
// ("json" or "csv"), oldest first. The file is created or truncated.
// Records that fail to flatten are logged and skipped; file-level failures
// are returned.
func (t *Tracker) ExportErrors(path, format string) error {
	records := t.agg.Snapshot()
	sort.Slice(records, func(i, j int) bool { return records[i].FirstSeen.Before(records[j].FirstSeen) })

	switch format {
	case "", "json":
		return t.exportJSON(path, records)
	case "csv":
		return t.exportCSV(path, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func (t *Tracker) exportJSON(path string, records []ErrorRecord) error {
	envelope := exportEnvelope{
		ExportedAt:  t.now(),
		TotalErrors: len(records),
		Stats:       t.GetErrorStats(),
		Errors:      records,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		f.Close()
		return fmt.Errorf("encode export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	t.logger.Info("exported errors", "path", path, "format", "json", "records", len(records))
	return nil
}

func (t *Tracker) exportCSV(path string, records []ErrorRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(exportColumns); err != nil {
		f.Close()
		return fmt.Errorf("write export header: %w", err)
	}

	written := 0
	for _, rec := range records {
		row, err := exportRow(rec)
		if err != nil {
			t.logger.Warn("skipping unexportable record", "id", rec.ID, "error", err)
			continue
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write export row: %w", err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	t.logger.Info("exported errors", "path", path, "format", "csv", "records", written)
	return nil
}

// exportRow flattens a record into CSV columns. AdditionalData is embedded
// as a JSON object in the last column.
func exportRow(rec ErrorRecord) ([]string, error) {
	extra := ""
	if len(rec.Context.AdditionalData) > 0 {
		data, err := json.Marshal(rec.Context.AdditionalData)
		if err != nil {
			return nil, fmt.Errorf("marshal additional data: %w", err)
		}
		extra = string(data)
	}

	resolvedAt := ""
	if rec.ResolvedAt != nil {
		resolvedAt = rec.ResolvedAt.Format(time.RFC3339Nano)
	}

	return []string{
		rec.ID,
		rec.Fingerprint,
		string(rec.Severity),
		string(rec.Category),
		rec.Message,
		rec.ErrorType,
		rec.StackTrace,
		strconv.Itoa(rec.Count),
		rec.FirstSeen.Format(time.RFC3339Nano),
		rec.LastSeen.Format(time.RFC3339Nano),
		strconv.FormatBool(rec.Resolved),
		rec.ResolutionNote,
		resolvedAt,
		rec.Context.FunctionName,
		rec.Context.ModuleName,
		rec.Context.FilePath,
		strconv.Itoa(rec.Context.LineNumber),
		rec.Context.UserID,
		rec.Context.SessionID,
		rec.Context.RequestID,
		extra,
	}, nil
}
