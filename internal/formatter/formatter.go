// package formatter renders study history and statistics to various formats (CSV, Markdown, plain
// text, JSON, YAML)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists every supported export format.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON, FormatYAML}

// ParseFormat accepts a format name or one of its common aliases (md, text, yml).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want csv, markdown, txt, json or yaml)", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// HistoryExport is the document written by every export format.
type HistoryExport struct {
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Stats       models.Stats         `json:"stats" yaml:"stats"`
	Sessions    []models.SessionView `json:"sessions" yaml:"sessions"`
}

// NewHistoryExport builds an export of sessions (newest first, as listed by the repository) and
// the summary stats.
func NewHistoryExport(sessions []*models.SessionRecord, stats models.Stats, generatedAt time.Time) *HistoryExport {
	views := make([]models.SessionView, len(sessions))
	for i, s := range sessions {
		views[i] = s.View()
	}
	return &HistoryExport{GeneratedAt: generatedAt, Stats: stats, Sessions: views}
}

// ExportToCSV writes one row per session with columns: ID, Sequence, Phase, Minutes, StudyDate, CompletedAt
func ExportToCSV(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Sequence", "Phase", "Minutes", "StudyDate", "CompletedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range export.Sessions {
		record := []string{
			s.ID,
			strconv.Itoa(s.Sequence),
			s.Phase,
			strconv.Itoa(s.Minutes),
			s.StudyDate,
			s.CompletedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a summary, a daily table and the session list.
func ExportToMarkdown(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer
	st := export.Stats

	buf.WriteString("# Study History\n\n")
	fmt.Fprintf(&buf, "**Generated**: %s\n\n", export.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintf(&buf, "**Focus sessions**: %d\n", st.SessionCount)
	fmt.Fprintf(&buf, "**Total study time**: %s\n", shared.FormatMinutes(st.TotalStudyMinutes))
	fmt.Fprintf(&buf, "**Streak**: %d day(s)\n", st.StudyStreakDays)
	if st.LastStudyDate != nil {
		fmt.Fprintf(&buf, "**Last study day**: %s\n", st.LastStudyDate)
	}

	if len(st.Days) > 0 {
		buf.WriteString("\n## Daily Totals\n\n")
		buf.WriteString("| Date | Focus | Sessions | Breaks |\n")
		buf.WriteString("|---|---|---|---|\n")
		for _, d := range st.Days {
			fmt.Fprintf(&buf, "| %s | %s | %d | %d |\n", d.Date, shared.FormatMinutes(d.FocusMinutes), d.Sessions, d.Breaks)
		}
	}

	buf.WriteString("\n## Sessions\n\n")
	if len(export.Sessions) == 0 {
		buf.WriteString("_No sessions recorded._\n")
	}
	for _, s := range export.Sessions {
		fmt.Fprintf(&buf, "%d. %s %s (%d min) at %s\n", s.Sequence, s.StudyDate, s.Phase, s.Minutes, s.CompletedAt.Format("15:04"))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the session list as plain text.
func ExportToText(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Study history: %d focus sessions, %s\n", export.Stats.SessionCount, shared.FormatMinutes(export.Stats.TotalStudyMinutes))
	fmt.Fprintf(&buf, "Streak: %d day(s)\n\n", export.Stats.StudyStreakDays)

	for _, s := range export.Sessions {
		fmt.Fprintf(&buf, "#%d  %s  %-5s  %3d min  %s\n", s.Sequence, s.StudyDate, s.Phase, s.Minutes, s.CompletedAt.Format(time.Kitchen))
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the export as indented JSON.
func ExportToJSON(export *HistoryExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToYAML encodes the export as YAML.
func ExportToYAML(export *HistoryExport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders export in format f.
func Export(f Format, export *HistoryExport) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	case FormatYAML:
		return ExportToYAML(export)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
}

// WriteExport renders export in format f to path, creating parent directories.
//
// Defaults to study_history.{ext} in the working directory.
func WriteExport(f Format, export *HistoryExport, path string) (string, error) {
	if path == "" {
		path = "study_history." + f.Extension()
	}

	data, err := Export(f, export)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// RenderStats formats stats as the plain text printed by `studyx stats`.
func RenderStats(st models.Stats) string {
	var b strings.Builder

	peak := 0
	for _, d := range st.Days {
		peak = max(peak, d.FocusMinutes)
	}
	for _, d := range st.Days {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", d.FocusMinutes*20/peak)
		}
		fmt.Fprintf(&b, "%s  %-20s  %6s  %d session(s)\n", d.Date, bar, shared.FormatMinutes(d.FocusMinutes), d.Sessions)
	}

	fmt.Fprintf(&b, "\nToday:     %s\n", shared.FormatMinutes(st.TodayMinutes))
	fmt.Fprintf(&b, "Window:    %s over %d day(s)\n", shared.FormatMinutes(st.WindowMinutes), len(st.Days))
	fmt.Fprintf(&b, "All time:  %s in %d focus session(s)\n", shared.FormatMinutes(st.TotalStudyMinutes), st.SessionCount)
	fmt.Fprintf(&b, "Streak:    %d day(s)", st.StudyStreakDays)
	if st.LastStudyDate != nil {
		fmt.Fprintf(&b, ", last studied %s", st.LastStudyDate)
	}
	b.WriteString("\n")
	return b.String()
}
