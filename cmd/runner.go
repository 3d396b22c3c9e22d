package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/repositories"
	"github.com/desertthunder/studyx/internal/services"
	"github.com/desertthunder/studyx/internal/shared"
	"github.com/desertthunder/studyx/internal/tasks"
	"github.com/desertthunder/studyx/internal/timer"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.MusicService
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
	scheduler  timer.Scheduler

	db       *sql.DB
	kv       timer.KV
	sessions *repositories.SessionRepository
	timer    *timer.Timer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.MusicService
	Logger     *log.Logger
	Output     io.Writer
	// DB replaces the configured database, mainly for tests. It must already be migrated.
	DB        *sql.DB
	Scheduler timer.Scheduler
	Now       func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timer.TickerScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
		scheduler:  opts.Scheduler,
	}
	if opts.DB != nil {
		r.useDB(opts.DB)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, timerCommand, statsCommand, historyCommand, spotifyCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it constructs afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) useDB(db *sql.DB) {
	r.db = db
	r.kv = repositories.NewKVRepository(db)
	r.sessions = repositories.NewSessionRepository(db)
}

// openStore opens the configured database on first use.
func (r *Runner) openStore() error {
	if r.db != nil {
		return nil
	}

	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database (run `studyx setup` first?): %w", err)
	}
	r.useDB(db)
	return nil
}

// loadTimer builds the timer from its persisted record. Completed phases are recorded to the
// session history.
func (r *Runner) loadTimer() (*timer.Timer, error) {
	if r.timer != nil {
		return r.timer, nil
	}
	if err := r.openStore(); err != nil {
		return nil, err
	}

	namespace := r.config.Timer.Namespace
	if namespace == "" {
		namespace = timer.DefaultNamespace
	}

	r.timer = timer.New(timer.Options{
		Scheduler:      r.scheduler,
		Store:          timer.NewStore(r.kv, namespace),
		Logger:         shared.WithLogger(r.logger, "component", "timer"),
		Now:            r.now,
		ManualContinue: !r.config.Timer.AutoContinue,
		OnComplete:     repositories.CompletionRecorder(r.sessions, r.logger),
	})
	return r.timer, nil
}

func (r *Runner) archiveEngine() (*tasks.ArchiveEngine, error) {
	if err := r.openStore(); err != nil {
		return nil, err
	}
	return tasks.NewArchiveEngine(r.sessions, r.logger), nil
}

// Close stops the timer and releases the database.
func (r *Runner) Close() error {
	if r.timer != nil {
		r.timer.Close()
		r.timer = nil
	}
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

func (r *Runner) today() timer.Date {
	return timer.DateOf(r.now())
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
