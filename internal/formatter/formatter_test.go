package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	th "github.com/desertthunder/studyx/internal/testing"
	"github.com/desertthunder/studyx/internal/timer"
)

func sampleExport() *HistoryExport {
	day := timer.NewDate(2025, 3, 14)
	at := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	focus := models.NewSessionRecord(2, timer.PhaseFocus, 25, day, at)
	focus.SetID("session-2")
	rest := models.NewSessionRecord(1, timer.PhaseBreak, 0, day, at.Add(-5*time.Minute))
	rest.SetID("session-1")

	last := day
	stats := models.Stats{
		Days: []models.DailyTotal{
			{Date: day.AddDays(-1), FocusMinutes: 0},
			{Date: day, FocusMinutes: 25, Sessions: 1, Breaks: 1},
		},
		TodayMinutes:      25,
		WindowMinutes:     25,
		SessionCount:      1,
		TotalStudyMinutes: 25,
		StudyStreakDays:   1,
		LastStudyDate:     &last,
	}
	return NewHistoryExport([]*models.SessionRecord{focus, rest}, stats, at)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"text", FormatText},
		{"txt", FormatText},
		{"json", FormatJSON},
		{"yml", FormatYAML},
		{" yaml ", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("extensions", func(t *testing.T) {
		if FormatMarkdown.Extension() != "md" || FormatYAML.Extension() != "yaml" {
			t.Errorf("unexpected extensions")
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want header + 2", len(rows))
		}
		if strings.Join(rows[0], ",") != "ID,Sequence,Phase,Minutes,StudyDate,CompletedAt" {
			t.Errorf("headers = %v", rows[0])
		}
		want := []string{"session-2", "2", "focus", "25", "2025-03-14", "2025-03-14T10:30:00Z"}
		if strings.Join(rows[1], ",") != strings.Join(want, ",") {
			t.Errorf("row = %v, want %v", rows[1], want)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)
		for _, want := range []string{
			"# Study History",
			"**Focus sessions**: 1",
			"**Total study time**: 25m",
			"**Last study day**: 2025-03-14",
			"| 2025-03-14 | 25m | 1 | 1 |",
			"2. 2025-03-14 focus (25 min) at 10:30",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown without sessions", func(t *testing.T) {
		data, err := ExportToMarkdown(NewHistoryExport(nil, models.Stats{}, time.Now()))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "No sessions recorded") {
			t.Errorf("missing empty marker:\n%s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "1 focus sessions, 25m") {
			t.Errorf("missing summary:\n%s", output)
		}
		if !strings.Contains(output, "#2  2025-03-14  focus") {
			t.Errorf("missing session line:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		var decoded struct {
			Stats struct {
				LastStudyDate string `json:"last_study_date"`
			} `json:"stats"`
			Sessions []models.SessionView `json:"sessions"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Stats.LastStudyDate != "2025-03-14" {
			t.Errorf("last_study_date = %q", decoded.Stats.LastStudyDate)
		}
		if len(decoded.Sessions) != 2 || decoded.Sessions[0].ID != "session-2" {
			t.Errorf("sessions = %+v", decoded.Sessions)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(sampleExport())
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}
		var decoded struct {
			Stats struct {
				SessionCount  int    `yaml:"session_count"`
				LastStudyDate string `yaml:"last_study_date"`
			} `yaml:"stats"`
			Sessions []struct {
				ID    string `yaml:"id"`
				Phase string `yaml:"phase"`
			} `yaml:"sessions"`
		}
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v\n%s", err, data)
		}
		if decoded.Stats.SessionCount != 1 || decoded.Stats.LastStudyDate != "2025-03-14" {
			t.Errorf("stats = %+v", decoded.Stats)
		}
		if len(decoded.Sessions) != 2 || decoded.Sessions[1].Phase != "break" {
			t.Errorf("sessions = %+v", decoded.Sessions)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteExport(FormatMarkdown, sampleExport(), "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "study_history.md" {
			t.Errorf("path = %q", path)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "# Study History") {
			t.Error("unexpected file content")
		}
	})

	t.Run("WithNestedPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "2025", "history.csv")
		got, err := WriteExport(FormatCSV, sampleExport(), path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		th.AssertDirExists(t, filepath.Dir(path))
		if !strings.HasPrefix(th.MustReadFile(t, got), "ID,Sequence") {
			t.Error("unexpected CSV content")
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		if _, err := WriteExport(Format("xml"), sampleExport(), filepath.Join(t.TempDir(), "x")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRenderStats(t *testing.T) {
	output := RenderStats(sampleExport().Stats)
	for _, want := range []string{
		"2025-03-14  ####################",
		"Today:     25m",
		"Window:    25m over 2 day(s)",
		"Streak:    1 day(s), last studied 2025-03-14",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderStats missing %q:\n%s", want, output)
		}
	}
}
