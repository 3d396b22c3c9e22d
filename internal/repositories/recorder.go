package repositories

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/timer"
)

// CompletionRecorder returns a [timer.Options.OnComplete] hook that writes each completed phase to
// repo. Failures are logged; the timer keeps running.
func CompletionRecorder(repo models.Repository[*models.SessionRecord], logger *log.Logger) func(timer.Completion) {
	return func(c timer.Completion) {
		record := models.SessionFromCompletion(c)
		if err := repo.Create(record); err != nil {
			logger.Error("failed to record session", "phase", c.Phase, "error", err)
			return
		}
		logger.Debug("recorded session", "id", record.ID(), "phase", c.Phase, "minutes", c.Minutes)
	}
}
