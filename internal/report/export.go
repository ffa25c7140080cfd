// Package report renders the task list as a downloadable JSON, CSV or PDF
// document.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"sf-clicktask-backend/internal/storage"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Format is a supported export encoding.
type Format struct {
	Name        string
	ContentType string
	Extension   string
}

var formats = map[string]Format{
	"json": {"json", "application/json", "json"},
	"csv":  {"csv", "text/csv", "csv"},
	"pdf":  {"pdf", "application/pdf", "pdf"},
}

// ParseFormat defaults to json when raw is empty.
func ParseFormat(raw string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		name = "json"
	}
	f, ok := formats[name]
	if !ok {
		return Format{}, fmt.Errorf("%w %q", ErrUnknownFormat, raw)
	}
	return f, nil
}

type Exporter struct{ st storage.TaskStore }

func NewExporter(st storage.TaskStore) *Exporter { return &Exporter{st: st} }

func (e *Exporter) Export(ctx context.Context, f Format, filter storage.TaskFilter) ([]byte, error) {
	all, err := e.st.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch f.Name {
	case "json":
		return json.MarshalIndent(all, "", "  ")
	case "csv":
		var b bytes.Buffer
		w := csv.NewWriter(&b)
		_ = w.Write([]string{"id", "name", "element", "section", "status", "timestamp"})
		for _, t := range all {
			_ = w.Write([]string{fmt.Sprint(t.ID), t.Name, t.Element, t.Section, string(t.Status), t.Timestamp.Format(time.RFC3339)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case "pdf":
		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(40, 10, "Captured Task Report")
		pdf.Ln(12)
		pdf.SetFont("Arial", "", 10)
		if len(all) == 0 {
			pdf.Cell(40, 6, "No tasks recorded.")
		}
		for _, t := range all {
			line := fmt.Sprintf("#%d [%s] %s - %s (%s)", t.ID, t.Status, t.Name, t.Section, t.Timestamp.Format("2006-01-02 15:04"))
			pdf.MultiCell(0, 6, line, "0", "L", false)
		}
		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, f.Name)
	}
}
