package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/machinemessiah/tagify-sub000/internal/repositories"
	"github.com/machinemessiah/tagify-sub000/internal/services"
	"github.com/machinemessiah/tagify-sub000/internal/shared"
	"github.com/machinemessiah/tagify-sub000/internal/store"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each
// command action. The database-backed stack (repositories, store, engine,
// tagger) opens lazily on first use so that setup and auth commands work
// against a missing database.
type Runner struct {
	config     *shared.Config
	configPath string
	remote     services.Service
	logger     *log.Logger
	output     io.Writer

	db       *sql.DB
	store    *store.Store
	engine   *tasks.Engine
	tagger   *tasks.Tagger
	items    *repositories.ItemRepository
	tags     *repositories.TagRepository
	syncLog  *repositories.SyncLogRepository
	metadata *repositories.MetadataRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Remote     services.Service
	Logger     *log.Logger
	Output     io.Writer
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		remote:     opts.Remote,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, dbCommand, authCommand, tagCommand, itemsCommand, tagsCommand,
		playlistCommand, syncCommand, exportCommand, importCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStack opens the database and wires the repositories, playlist store,
// sync engine and tagger. Idempotent; the first caller pays for it.
func (r *Runner) openStack() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	applied, pending, err := shared.MigrationStatus(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if len(applied) == 0 {
		db.Close()
		return fmt.Errorf("%w: database has no schema, run 'tagify setup' first", shared.ErrMissingConfig)
	}
	if len(pending) > 0 {
		r.logger.Warnf("%d pending migrations, run 'tagify db migrate'", len(pending))
	}

	r.db = db
	r.items = repositories.NewItemRepository(db)
	r.tags = repositories.NewTagRepository(db)
	r.syncLog = repositories.NewSyncLogRepository(db)
	r.metadata = repositories.NewMetadataRepository(db)

	r.store = store.New(repositories.NewKVRepository(db), r.logger)
	if err := r.store.Load(); err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	r.engine = tasks.NewEngine(r.store, r.items, r.remote, r.logger)
	r.engine.SetAudit(r.syncLog)
	r.engine.SetSettleDelay(r.config.Sync.SettleDelay())
	r.tagger = tasks.NewTagger(r.items, r.tags, r.engine, r.logger)

	return nil
}

// Close drains the engine queue and releases the database. Safe to call when
// the stack never opened.
func (r *Runner) Close() {
	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("error closing database", "error", err)
		}
		r.db = nil
	}
}

// SetLogger replaces the runner's logger, used when the TUI takes over the
// terminal and logs move to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// saveTokens persists an OAuth token set onto the config file. With no config
// path the update stays in memory, which is what tests and ad hoc runs want.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// flushNotifications prints every queued engine notification, one line each.
// The channel is buffered and producers never block on it, so a non-blocking
// drain after the operation settles collects everything that was emitted.
func (r *Runner) flushNotifications() {
	if r.engine == nil {
		return
	}

	for {
		select {
		case n := <-r.engine.Notifications():
			switch n.Kind {
			case tasks.NotifyManualAction, tasks.NotifyDataLoss:
				r.writePlain("⚠ %s\n", n.Message)
			default:
				r.writePlain("• %s\n", n.Message)
			}
		default:
			return
		}
	}
}

// settleQueue waits out the dispatcher work a tagging command queued, then
// reports what it did.
func (r *Runner) settleQueue() {
	if r.engine == nil {
		return
	}
	r.engine.Queue().Wait()
	r.flushNotifications()
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
