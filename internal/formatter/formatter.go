// package formatter renders catalog projections for export (text, JSON, CSV, XLSX) and builds share messages
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
	"github.com/xuri/excelize/v2"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// ParseFormat accepts text, txt, json, csv and xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

var recordHeaders = []string{"ID", "College", "Semester", "Course", "Department", "Requests", "Status"}

func recordRow(rec models.CourseRecord) []string {
	return []string{
		rec.ID,
		rec.Institution,
		strconv.Itoa(rec.Term),
		rec.Title,
		rec.Department,
		strconv.Itoa(rec.RequestCount),
		rec.Status.Label(),
	}
}

// ExportToText renders groups as aligned tables, one per institution, with a progress column toward goal.
func ExportToText(groups []models.GroupView, goal int) ([]byte, error) {
	var buf bytes.Buffer
	if len(groups) == 0 {
		buf.WriteString("No courses found.\n")
		return buf.Bytes(), nil
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	for i, g := range groups {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("%s (%d courses, %d requests)\n", g.Institution, len(g.Records), g.TotalRequests))

		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cell }).
			Headers("ID", "Course", "Department", "Semester", "Requests", "Progress", "Status")
		for _, rec := range g.Records {
			t.Row(
				rec.ID,
				rec.Title,
				rec.Department,
				strconv.Itoa(rec.Term),
				strconv.Itoa(rec.RequestCount),
				ProgressBar(rec.RequestCount, goal, 10),
				rec.Status.Label(),
			)
		}
		buf.WriteString(t.String())
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// ExportToJSON renders groups as an indented JSON array.
func ExportToJSON(groups []models.GroupView) ([]byte, error) {
	if groups == nil {
		groups = []models.GroupView{}
	}
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders one row per record with columns: ID, College, Semester, Course, Department, Requests, Status
func ExportToCSV(groups []models.GroupView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(recordHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, g := range groups {
		for _, rec := range g.Records {
			if err := writer.Write(recordRow(rec)); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSXSheet is the name of the single worksheet written by [ExportToXLSX].
const XLSXSheet = "Catalog"

// ExportToXLSX renders a workbook with one sheet: a header, one row per record, a blank row, then one total row
// per institution.
func ExportToXLSX(groups []models.GroupView) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName(wb.GetSheetName(0), XLSXSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	row := 1
	setRow := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return wb.SetSheetRow(XLSXSheet, cell, &values)
	}

	header := make([]any, len(recordHeaders))
	for i, h := range recordHeaders {
		header[i] = h
	}
	if err := setRow(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for _, g := range groups {
		for _, rec := range g.Records {
			values := []any{rec.ID, rec.Institution, rec.Term, rec.Title, rec.Department, rec.RequestCount, rec.Status.Label()}
			if err := setRow(values); err != nil {
				return nil, fmt.Errorf("failed to write record %s: %w", rec.ID, err)
			}
		}
	}

	row++
	if err := setRow([]any{"College", "Courses", "Total Requests"}); err != nil {
		return nil, fmt.Errorf("failed to write totals header: %w", err)
	}
	for _, g := range groups {
		if err := setRow([]any{g.Institution, len(g.Records), g.TotalRequests}); err != nil {
			return nil, fmt.Errorf("failed to write totals for %s: %w", g.Institution, err)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders groups in format.
func Export(groups []models.GroupView, format Format, goal int) ([]byte, error) {
	switch format {
	case FormatText:
		return ExportToText(groups, goal)
	case FormatJSON:
		return ExportToJSON(groups)
	case FormatCSV:
		return ExportToCSV(groups)
	case FormatXLSX:
		return ExportToXLSX(groups)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders groups in format and writes them to path.
//
// Defaults to catalog.{ext} as the filename.
func WriteExport(groups []models.GroupView, format Format, goal int, path string) (string, error) {
	if path == "" {
		path = "catalog." + format.Ext()
	}

	data, err := Export(groups, format, goal)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// ProgressBar draws count toward goal as a fixed-width bar followed by "count/goal".
func ProgressBar(count, goal, width int) string {
	if goal <= 0 {
		goal = tasks.DefaultRequestGoal
	}
	if width <= 0 {
		width = 10
	}
	pct, _ := tasks.Progress(count, goal)
	filled := pct * width / 100
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("#", filled), strings.Repeat("-", width-filled), count, goal)
}

// ShareTitle is the heading used when sharing rec.
func ShareTitle(rec models.CourseRecord) string {
	if rec.Status == models.StatusActive {
		return "Join " + rec.Title
	}
	return "Request " + rec.Title
}

// ShareMessage is the text a user sends to friends to rally requests for rec. link is appended when set.
func ShareMessage(rec models.CourseRecord, goal int, link string) string {
	if goal <= 0 {
		goal = tasks.DefaultRequestGoal
	}

	var msg string
	if rec.Status == models.StatusActive {
		msg = fmt.Sprintf("Share this with your friend and start learning together! \"%s\" at %s is now active with %d requests.",
			rec.Title, rec.Institution, rec.RequestCount)
	} else {
		msg = fmt.Sprintf("Help me request \"%s\" at %s! We need %d requests to make this course happen. Currently at %d/%d requests.",
			rec.Title, rec.Institution, goal, rec.RequestCount, goal)
	}

	if link != "" {
		msg += " Join me: " + link
	}
	return msg
}
