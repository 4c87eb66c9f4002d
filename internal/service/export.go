package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ExportFormat selects the serialization of ExportTodos.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat accepts "csv" and "json"; an empty string means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportJSON:
		return ExportJSON, nil
	}
	return "", invalid("unsupported export format %q (use csv or json)", s)
}

// ContentType is the MIME type of the exported document.
func (f ExportFormat) ContentType() string {
	if f == ExportJSON {
		return "application/json; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

var csvHeader = []string{"id", "title", "description", "priority", "category", "completed", "created_at"}

// ExportTodos writes every todo matching req to w.
func (s *todoService) ExportTodos(ctx context.Context, req ListTodosRequest, format ExportFormat, w io.Writer) error {
	todos, err := s.GetAllTodos(ctx, req)
	if err != nil {
		return err
	}

	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(todos)
	case ExportCSV:
		return writeCSV(w, todos)
	}
	return invalid("unsupported export format %q", format)
}

func writeCSV(w io.Writer, todos []TodoResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range todos {
		record := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Title,
			t.Description,
			t.Priority,
			t.Category,
			strconv.FormatBool(t.Completed),
			t.CreatedAt,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for todo %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
