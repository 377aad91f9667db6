package survey

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/kingrea/roadmap-survey/internal/roadmap"
)

// Column headers used by the two record layouts.
const (
	ColumnName        = "Name"
	ColumnBarrier     = "Barrier"
	ColumnAction      = "Action"
	ColumnOpportunity = "Opportunity"
	ColumnComments    = "Comments"
)

// Record is a built survey response: a header plus one row per pair.
type Record struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (r Record) Len() int {
	return len(r.Rows)
}

// Build emits one row per selected pair. Callers validate first; Build
// accepts any input. Cell values have CRLF line breaks folded to LF, the only
// form a CSV reader hands back.
func Build(name string, selection Selection, comments string) Record {
	rec := Record{
		Columns: []string{ColumnName, ColumnBarrier, ColumnAction, ColumnComments},
		Rows:    make([][]string, 0, len(selection)),
	}
	name, comments = cell(name), cell(comments)
	for _, pair := range selection {
		rec.Rows = append(rec.Rows, []string{name, cell(pair.Barrier), cell(pair.Action), comments})
	}
	return rec
}

// BuildAll emits one row per barrier/opportunity pair of the whole roadmap.
func BuildAll(name string, rm *roadmap.Roadmap, comments string) Record {
	rec := Record{
		Columns: []string{ColumnBarrier, ColumnOpportunity, ColumnName, ColumnComments},
		Rows:    [][]string{},
	}
	if rm == nil {
		return rec
	}
	name, comments = cell(name), cell(comments)
	for _, pair := range rm.Pairs() {
		rec.Rows = append(rec.Rows, []string{cell(pair.Barrier), cell(pair.Action), name, comments})
	}
	return rec
}

func cell(v string) string {
	return strings.ReplaceAll(v, "\r\n", "\n")
}

// MarshalCSV renders the record as comma-separated text with a header row.
func (r Record) MarshalCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Columns); err != nil {
		return nil, fmt.Errorf("survey: encode header: %w", err)
	}
	if err := w.WriteAll(r.Rows); err != nil {
		return nil, fmt.Errorf("survey: encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCSV reads text produced by MarshalCSV.
func ParseCSV(data []byte) (Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return Record{}, fmt.Errorf("survey: decode csv: %w", err)
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("survey: decode csv: missing header")
	}
	return Record{Columns: records[0], Rows: append([][]string{}, records[1:]...)}, nil
}

// FileName is the object name a response is stored under. Path separators in
// the respondent name are replaced so the response stays a single file.
func FileName(name string) string {
	safe := strings.NewReplacer("/", "-", `\`, "-").Replace(strings.TrimSpace(name))
	return safe + "_response.csv"
}
