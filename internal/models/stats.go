package models

import "github.com/desertthunder/studyx/internal/timer"

// DailyTotal aggregates the phases completed on one day.
type DailyTotal struct {
	Date         timer.Date `json:"date" yaml:"date"`
	FocusMinutes int        `json:"focus_minutes" yaml:"focus_minutes"`
	Sessions     int        `json:"sessions" yaml:"sessions"`
	Breaks       int        `json:"breaks" yaml:"breaks"`
}

// Stats is the dashboard summary: recent days from history plus the timer's running counters.
type Stats struct {
	Days              []DailyTotal `json:"days" yaml:"days"`
	TodayMinutes      int          `json:"today_minutes" yaml:"today_minutes"`
	WindowMinutes     int          `json:"window_minutes" yaml:"window_minutes"`
	SessionCount      int          `json:"session_count" yaml:"session_count"`
	TotalStudyMinutes int          `json:"total_study_minutes" yaml:"total_study_minutes"`
	StudyStreakDays   int          `json:"study_streak_days" yaml:"study_streak_days"`
	LastStudyDate     *timer.Date  `json:"last_study_date" yaml:"last_study_date"`
}

// FillDays returns one entry per day in [from, to], taking totals from known and zeroes elsewhere.
func FillDays(known []DailyTotal, from, to timer.Date) []DailyTotal {
	byDate := make(map[string]DailyTotal, len(known))
	for _, d := range known {
		byDate[d.Date.String()] = d
	}

	var days []DailyTotal
	for d := from; !to.Before(d); d = d.AddDays(1) {
		if total, ok := byDate[d.String()]; ok {
			days = append(days, total)
			continue
		}
		days = append(days, DailyTotal{Date: d})
	}
	return days
}

// NewStats builds a [Stats] from the filled day window and the timer state. The last entry of days is
// taken as today.
func NewStats(days []DailyTotal, state timer.State) Stats {
	s := Stats{
		Days:              days,
		SessionCount:      state.SessionCount,
		TotalStudyMinutes: state.TotalStudyMinutes,
		StudyStreakDays:   state.StudyStreakDays,
		LastStudyDate:     state.LastStudyDate,
	}
	for _, d := range days {
		s.WindowMinutes += d.FocusMinutes
	}
	if len(days) > 0 {
		s.TodayMinutes = days[len(days)-1].FocusMinutes
	}
	return s
}
