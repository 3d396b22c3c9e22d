package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// TimerController is the part of [timer.Timer] the dashboard drives.
type TimerController interface {
	State() timer.State
	Start()
	Pause()
	Reset()
	AdjustDuration(deltaMinutes int)
}

// StatsSource aggregates study history, satisfied by [repositories.SessionRepository].
type StatsSource interface {
	Stats(days int, today timer.Date, state timer.State) (models.Stats, error)
}

// TimerResponse is the body of every /api/timer answer.
type TimerResponse struct {
	timer.State
	Phase     timer.Phase `json:"phase"`
	Clock     string      `json:"clock"`
	Progress  float64     `json:"progress"`
	Timestamp time.Time   `json:"timestamp"`
}

// TimerHandler serves the dashboard API over a running timer.
type TimerHandler struct {
	timer  TimerController
	stats  StatsSource
	logger *log.Logger
	now    func() time.Time
}

// NewTimerHandler creates a dashboard handler. stats may be nil, in which case /api/stats is
// answered with 503.
func NewTimerHandler(t TimerController, stats StatsSource, logger *log.Logger) *TimerHandler {
	return &TimerHandler{timer: t, stats: stats, logger: logger, now: time.Now}
}

// Routes returns the HTTP routes this handler serves.
func (h *TimerHandler) Routes() []string {
	return []string{"/api/timer", "/api/timer/", "/api/stats"}
}

func (h *TimerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/timer":
		h.only(w, r, http.MethodGet, h.status)
	case "/api/timer/start":
		h.only(w, r, http.MethodPost, h.command(h.timer.Start))
	case "/api/timer/pause":
		h.only(w, r, http.MethodPost, h.command(h.timer.Pause))
	case "/api/timer/reset":
		h.only(w, r, http.MethodPost, h.command(h.timer.Reset))
	case "/api/timer/adjust":
		h.only(w, r, http.MethodPost, h.adjust)
	case "/api/stats":
		h.only(w, r, http.MethodGet, h.statsPage)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown route %s", r.URL.Path))
	}
}

func (h *TimerHandler) only(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	fn(w, r)
}

func (h *TimerHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *TimerHandler) command(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		h.logger.Debug("timer command", "path", r.URL.Path)
		writeJSON(w, http.StatusOK, h.snapshot())
	}
}

func (h *TimerHandler) adjust(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.URL.Query().Get("minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: minutes must be an integer", shared.ErrInvalidArgument))
		return
	}
	if h.timer.State().IsActive {
		writeError(w, http.StatusConflict, fmt.Errorf("%w: pause the timer before adjusting", shared.ErrInvalidInput))
		return
	}
	h.timer.AdjustDuration(minutes)
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *TimerHandler) statsPage(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, shared.ErrServiceUnavailable)
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: days must be between 1 and 366", shared.ErrInvalidArgument))
			return
		}
		days = n
	}

	stats, err := h.stats.Stats(days, timer.DateOf(h.now()), h.timer.State())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TimerHandler) snapshot() TimerResponse {
	state := h.timer.State()
	return TimerResponse{
		State:     state,
		Phase:     state.Phase(),
		Clock:     shared.FormatClock(state.RemainingSeconds),
		Progress:  state.Progress(),
		Timestamp: h.now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
