package timer

// RecordStudyDay applies a focus completion on today to the streak.
//
// A completion on the same day as last leaves both values unchanged. A completion on the day after
// last extends the streak; anything else (including no previous date) starts a new streak of 1.
func RecordStudyDay(last *Date, streak int, today Date) (*Date, int) {
	if last != nil && last.Equal(today) {
		return last, streak
	}

	d := today
	if last != nil && last.Equal(today.AddDays(-1)) {
		return &d, streak + 1
	}
	return &d, 1
}

// RefreshStreak returns the streak as it should be displayed on today: zero once a full day has been
// missed. last is not modified, so the next completion still restarts the count at 1.
func RefreshStreak(last *Date, streak int, today Date) int {
	if last == nil || last.Equal(today) || last.Equal(today.AddDays(-1)) {
		return streak
	}
	return 0
}
