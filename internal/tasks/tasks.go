package tasks

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/timer"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 8
	MonthLayout    = "2006-01"
)

// SessionLister lists recorded sessions, satisfied by [repositories.SessionRepository].
type SessionLister interface {
	List(criteria map[string]any) ([]*models.SessionRecord, error)
}

// MonthJob is one month of sessions queued for export.
type MonthJob struct {
	Month    string
	Sessions []*models.SessionRecord
}

// MonthResult is the outcome of exporting one month.
type MonthResult struct {
	Month        string `json:"month"`
	Sessions     int    `json:"sessions"`
	FocusMinutes int    `json:"focus_minutes"`
	File         string `json:"file,omitempty"`
	Success      bool   `json:"success"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// ArchiveResult summarizes an [ArchiveEngine.Archive] run.
type ArchiveResult struct {
	GeneratedAt     time.Time     `json:"generated_at"`
	Format          string        `json:"format"`
	TotalMonths     int           `json:"total_months"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	OutputDirectory string        `json:"output_directory"`
	ManifestPath    string        `json:"-"`
	Results         []MonthResult `json:"results"`
}

// ArchiveEngine exports study history in monthly files.
type ArchiveEngine struct {
	sessions SessionLister
	logger   *log.Logger
	now      func() time.Time
}

// NewArchiveEngine creates an engine over the given session source.
func NewArchiveEngine(sessions SessionLister, logger *log.Logger) *ArchiveEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ArchiveEngine{sessions: sessions, logger: logger, now: time.Now}
}

// sendProgress sends an update without blocking.
func (e *ArchiveEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// GroupByMonth buckets sessions by the month of their study date. Months are returned oldest first
// and sessions within a month keep their input order.
func GroupByMonth(sessions []*models.SessionRecord) []MonthJob {
	byMonth := make(map[string][]*models.SessionRecord)
	for _, s := range sessions {
		month := s.StudyDate().Time().Format(MonthLayout)
		byMonth[month] = append(byMonth[month], s)
	}

	jobs := make([]MonthJob, 0, len(byMonth))
	for month, list := range byMonth {
		jobs = append(jobs, MonthJob{Month: month, Sessions: list})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Month < jobs[j].Month })
	return jobs
}

// MonthStats summarizes one month of sessions for its export header.
func MonthStats(sessions []*models.SessionRecord) models.Stats {
	totals := make(map[string]*models.DailyTotal)
	var (
		first, last timer.Date
		stats       models.Stats
	)

	for _, s := range sessions {
		d := s.StudyDate()
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || last.Before(d) {
			last = d
		}

		t, ok := totals[d.String()]
		if !ok {
			t = &models.DailyTotal{Date: d}
			totals[d.String()] = t
		}
		if s.Phase() == timer.PhaseFocus {
			t.FocusMinutes += s.Minutes()
			t.Sessions++
			stats.SessionCount++
			stats.TotalStudyMinutes += s.Minutes()
		} else {
			t.Breaks++
		}
	}
	if len(sessions) == 0 {
		return stats
	}

	known := make([]models.DailyTotal, 0, len(totals))
	for _, t := range totals {
		known = append(known, *t)
	}
	stats.Days = models.FillDays(known, first, last)
	stats.WindowMinutes = stats.TotalStudyMinutes
	lastDay := last
	stats.LastStudyDate = &lastDay
	return stats
}
