package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadSessions Phase = iota
	GroupMonths
	WriteMonth
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case LoadSessions:
		return "load_sessions"
	case GroupMonths:
		return "group_months"
	case WriteMonth:
		return "write_month"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func loadSessionsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: LoadSessions, Step: 1, Total: 1, Message: "Loading study history..."}
}

func groupedUpdate(sessions, months int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GroupMonths,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d session(s) across %d month(s)", sessions, months),
	}
}

func monthWrittenUpdate(step, total int, res MonthResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteMonth,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d sessions)", step, total, res.Month, res.Sessions),
		Data:    res,
	}
}

func monthFailedUpdate(step, total int, res MonthResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteMonth,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Month, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: fmt.Sprintf("Manifest written to %s", path)}
}
