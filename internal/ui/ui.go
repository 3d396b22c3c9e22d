package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/studyx/internal/models"
	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/timer"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TimerView ViewState = iota
	StatsView
	PlaylistView
	RecommendView
)

// StatsDays is the window shown by [StatsView].
const StatsDays = 7

// TimerControl is the part of [timer.Timer] the TUI drives.
type TimerControl interface {
	State() timer.State
	Toggle()
	Reset()
	AdjustDuration(deltaMinutes int)
	Subscribe(buffer int) <-chan timer.Event
}

// StatsSource aggregates study history.
type StatsSource interface {
	Stats(days int, today timer.Date, state timer.State) (models.Stats, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	timer        TimerControl
	events       <-chan timer.Event
	stats        StatsSource
	music        services.MusicService
	now          func() time.Time
	width        int
	height       int
	state        timer.State
	summary      models.Stats
	bar          progress.Model
	playlistList list.Model
	trackList    list.Model
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model over t. stats and music may be nil; the views that need them are
// then unavailable.
func NewModel(ctx context.Context, t TimerControl, stats StatsSource, music services.MusicService) *Model {
	return &Model{
		ctx:    ctx,
		view:   TimerView,
		timer:  t,
		events: t.Subscribe(64),
		stats:  stats,
		music:  music,
		now:    time.Now,
		state:  t.State(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:   help.New(),
		keys:   newKeyMap(),

		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
	}
}

// Init starts listening for timer events and loads today's totals.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.fetchStats())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 10)
		m.playlistList.SetSize(m.listWidth(), m.listHeight())
		m.trackList.SetSize(m.listWidth(), m.listHeight())
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TimerView:
			return m.handleTimerKeys(msg)
		case StatsView:
			return m.handleStatsKeys(msg)
		case PlaylistView, RecommendView:
			return m.handleListKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTimerEvent:
		ev := msg.data.(timer.Event)
		m.state = ev.State
		if ev.Type == timer.EventPhaseComplete && ev.Completion != nil {
			m.status = completionStatus(*ev.Completion)
			return m, tea.Batch(m.waitForEvent(), m.fetchStats())
		}
		return m, m.waitForEvent()

	case MsgStatsFetched:
		res := msg.data.(statsResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.summary = res.stats

	case MsgPlaylistsFetched:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			m.err = res.err
			m.view = TimerView
			return m, nil
		}
		items := make([]playlistItem, len(res.playlists))
		for i, pl := range res.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = newPlayableList("Spotify Playlists", items, m.listWidth(), m.listHeight())
		m.view = PlaylistView

	case MsgTracksFetched:
		res := msg.data.(tracksResult)
		if res.err != nil {
			m.err = res.err
			m.view = TimerView
			return m, nil
		}
		items := make([]trackItem, len(res.tracks))
		for i, tr := range res.tracks {
			items[i] = trackItem{track: tr}
		}
		m.trackList = newPlayableList("Focus Recommendations", items, m.listWidth(), m.listHeight())
		m.view = RecommendView

	case MsgPlayback:
		res := msg.data.(playbackResult)
		switch {
		case errors.Is(res.err, shared.ErrNoActiveDevice):
			m.err = fmt.Errorf("open Spotify on a device first")
		case res.err != nil:
			m.err = res.err
		default:
			m.err = nil
			m.status = res.action
		}
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case StatsView:
		return m.renderStats()
	case PlaylistView:
		return m.renderList(m.playlistList)
	case RecommendView:
		return m.renderList(m.trackList)
	default:
		return m.renderTimer()
	}
}

func (m *Model) handleTimerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.timer.Toggle()
	case key.Matches(msg, m.keys.reset):
		m.timer.Reset()
	case key.Matches(msg, m.keys.more):
		m.timer.AdjustDuration(1)
	case key.Matches(msg, m.keys.less):
		m.timer.AdjustDuration(-1)
	case key.Matches(msg, m.keys.stats):
		m.view = StatsView
		return m, m.fetchStats()
	case key.Matches(msg, m.keys.playlists):
		if m.music == nil {
			m.err = shared.ErrMissingCredentials
			return m, nil
		}
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.recommend):
		if m.music == nil {
			m.err = shared.ErrMissingCredentials
			return m, nil
		}
		return m, m.fetchRecommendations()
	case key.Matches(msg, m.keys.pause):
		if m.music != nil {
			return m, m.pauseMusic()
		}
	}
	m.state = m.timer.State()
	return m, nil
}

func (m *Model) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.stats):
		m.view = TimerView
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = TimerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		return m, m.playSelected()
	}

	return m.updateLists(msg)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case RecommendView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// listWidth and listHeight fall back to an 80x24 terminal until the first resize.
func (m *Model) listWidth() int {
	if m.width <= 0 {
		return 76
	}
	return max(m.width-4, 20)
}

func (m *Model) listHeight() int {
	if m.height <= 0 {
		return 16
	}
	return max(m.height-8, 5)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return timerEventMsg(ev)
	}
}

func (m *Model) fetchStats() tea.Cmd {
	if m.stats == nil {
		return nil
	}
	state := m.timer.State()
	today := timer.DateOf(m.now())
	return func() tea.Msg {
		stats, err := m.stats.Stats(StatsDays, today, state)
		return statsFetchedMsg(stats, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.music.GetPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchRecommendations() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.music.Recommendations(m.ctx, services.DefaultRecommendationParams())
		return tracksFetchedMsg(tracks, err)
	}
}

func (m *Model) pauseMusic() tea.Cmd {
	return func() tea.Msg {
		return playbackMsg("Music paused", m.music.Pause(m.ctx, ""))
	}
}

func (m *Model) playSelected() tea.Cmd {
	var selected list.Item
	switch m.view {
	case PlaylistView:
		selected = m.playlistList.SelectedItem()
	case RecommendView:
		selected = m.trackList.SelectedItem()
	}

	item, ok := selected.(playable)
	if !ok {
		return nil
	}

	m.view = TimerView
	opts := item.playOptions()
	return func() tea.Msg {
		return playbackMsg("Playing "+item.label(), m.music.Play(m.ctx, opts))
	}
}

func completionStatus(c timer.Completion) string {
	if c.Phase == timer.PhaseFocus {
		return fmt.Sprintf("Focus session complete (+%d min). Time for a break.", c.Minutes)
	}
	return "Break over. Back to focus."
}

func (m *Model) renderTimer() string {
	phase := "Focus"
	if m.state.IsBreak {
		phase = "Break"
	}
	running := "paused"
	if m.state.IsActive {
		running = "running"
	}

	title := styles.title.Render("studyx")
	clock := styles.clock.BorderForeground(styles.Phase(m.state.IsBreak).GetForeground()).
		Render(styles.Phase(m.state.IsBreak).Render(shared.FormatClock(m.state.RemainingSeconds)))
	header := fmt.Sprintf("%s · %s", styles.Phase(m.state.IsBreak).Render(phase), styles.help.Render(running))

	counters := fmt.Sprintf(
		"Sessions: %d   Studied: %s   Streak: %s   Today: %s",
		m.state.SessionCount,
		shared.FormatMinutes(m.state.TotalStudyMinutes),
		styles.streak.Render(fmt.Sprintf("%d day(s)", m.state.StudyStreakDays)),
		shared.FormatMinutes(m.summary.TodayMinutes),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n%s\n\n%s\n", title, header, clock, m.bar.ViewAs(m.state.Progress()), counters)
	if m.status != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.ok.Render(m.status))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	keys := []key.Binding{m.keys.toggle, m.keys.reset, m.keys.more, m.keys.less, m.keys.stats}
	if m.music != nil {
		keys = append(keys, m.keys.playlists, m.keys.recommend, m.keys.pause)
	}
	keys = append(keys, m.keys.quit)
	fmt.Fprintf(&b, "\n%s", m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderStats() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Last %d days", StatsDays)))
	b.WriteString("\n")

	peak := 0
	for _, d := range m.summary.Days {
		peak = max(peak, d.FocusMinutes)
	}
	for _, d := range m.summary.Days {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", d.FocusMinutes*30/peak)
		}
		fmt.Fprintf(&b, "%s  %s %s\n", d.Date, styles.focus.Render(bar), shared.FormatMinutes(d.FocusMinutes))
	}
	if len(m.summary.Days) == 0 {
		b.WriteString(styles.warn.Render("No history yet"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nWindow: %s   Streak: %d day(s)\n\n", shared.FormatMinutes(m.summary.WindowMinutes), m.summary.StudyStreakDays)
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderList(l list.Model) string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", l.View(), helpView)
}
