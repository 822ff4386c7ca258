package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kplor/internal/repositories"
	"github.com/desertthunder/kplor/internal/server"
	"github.com/desertthunder/kplor/internal/services"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
	"github.com/urfave/cli/v3"
)

const noticeBuffer = 64

// CatalogBackend reads the catalog and accepts submissions.
type CatalogBackend interface {
	tasks.CatalogSource
	tasks.CatalogWriter
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The engine (database, catalog, session, pipeline) is built on first use so that `setup` works
// without a configured backend.
type Runner struct {
	config      *shared.Config
	configPath  string
	configFixed bool
	sessionID   string
	logger      *log.Logger
	output      io.Writer
	prompter    *shared.Prompter

	db       *sql.DB
	ownsDB   bool
	backend  CatalogBackend
	identity services.IdentityProvider
	storage  services.StorageProvider
	notices  chan tasks.Notice

	store    *repositories.SessionRepository
	catalog  *tasks.CatalogManager
	session  *tasks.SessionController
	pipeline *tasks.RequestPipeline
	uploads  *tasks.UploadOrchestrator
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB, Backend, Identity and Storage are normally built from the config; tests pass fakes.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	SessionID  string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	DB         *sql.DB
	Backend    CatalogBackend
	Identity   services.IdentityProvider
	Storage    services.StorageProvider
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	fixed := opts.Config != nil
	if !fixed {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = defaultSession
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		configFixed: fixed,
		sessionID:   opts.SessionID,
		logger:      opts.Logger,
		output:      opts.Output,
		prompter:    shared.NewPrompter(opts.Input, nil),
		db:          opts.DB,
		backend:     opts.Backend,
		identity:    opts.Identity,
		storage:     opts.Storage,
	}
}

// SetLogger swaps the logger. Must be called before the engine is opened to reach the components.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// app builds the root command. Global flags are applied in [Runner.configure] before any action runs.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "kplor",
		Usage:   "Browse the course catalog, request courses and upload course materials",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("KPLOR_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "session",
				Usage:   "Session name; each session keeps its own identity and requested courses",
				Value:   defaultSession,
				Sources: cli.EnvVars("KPLOR_SESSION"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.configure,
		After:    func(context.Context, *cli.Command) error { return r.Close() },
		Commands: r.register(),
	}
}

// configure loads the config file and applies the global flags.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.configFixed {
		r.configPath = cmd.String("config")
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}
	if cmd.IsSet("session") || !r.configFixed {
		if s := cmd.String("session"); s != "" {
			r.sessionID = s
		}
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	if level != "" {
		shared.SetLogLevel(r.logger, level)
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, authCommand, requestCommand, submitCommand, uploadCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) authorizer() *server.BrowserAuthorizer {
	return server.NewBrowserAuthorizer(server.AuthorizerOpts{
		Server: r.config.Server,
		Logger: shared.WithLogger(r.logger, "component", "authorizer"),
	})
}

// open builds the engine once. Every command except `setup` goes through it.
func (r *Runner) open(ctx context.Context) error {
	if r.pipeline != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.ownsDB = true
	}

	if r.backend == nil {
		client, err := services.NewCatalogClient(services.CatalogOptsFromConfig(r.config.Catalog))
		if err != nil {
			return err
		}
		r.backend = client
	}

	if r.identity == nil {
		r.identity = r.buildIdentity()
	}

	r.notices = make(chan tasks.Notice, noticeBuffer)
	r.store = repositories.NewSessionRepository(r.db, r.sessionID)

	r.catalog = tasks.NewCatalogManager(r.backend, tasks.CatalogOpts{
		Snapshots:   repositories.NewSnapshotRepository(r.db),
		Logger:      shared.WithLogger(r.logger, "component", "catalog"),
		RequestGoal: r.config.Catalog.RequestGoal,
		Notices:     r.notices,
	})
	r.session = tasks.NewSessionController(r.identity, r.store, shared.WithLogger(r.logger, "component", "session"))
	r.pipeline = tasks.NewRequestPipeline(tasks.PipelineOpts{
		Catalog: r.catalog,
		Writer:  r.backend,
		Session: r.session,
		Store:   r.store,
		Logger:  shared.WithLogger(r.logger, "component", "pipeline"),
		Notices: r.notices,
	})

	if _, ok, err := r.session.Restore(); err != nil {
		r.logger.Warn("could not restore session", "session", r.sessionID, "error", err)
	} else if ok {
		r.logger.Debug("restored session", "session", r.sessionID)
	}
	return nil
}

func (r *Runner) buildIdentity() services.IdentityProvider {
	auth := r.authorizer()
	id, err := services.NewFirebaseIdentity(services.FirebaseOpts{
		APIKey:             r.config.Identity.APIKey,
		BaseURL:            r.config.Identity.BaseURL,
		GoogleClientID:     r.config.Identity.GoogleClientID,
		GoogleClientSecret: r.config.Identity.GoogleClientSecret,
		RedirectURL:        auth.RedirectURL(),
		Authorizer:         auth,
	})
	if err != nil {
		r.logger.Warn("identity provider unavailable", "error", err)
		return unconfiguredIdentity{err: err}
	}
	return id
}

// uploader builds the storage provider selected by `storage.provider` and the orchestrator on top of it.
func (r *Runner) uploader(ctx context.Context) (*tasks.UploadOrchestrator, error) {
	if r.uploads != nil {
		return r.uploads, nil
	}

	if r.storage == nil {
		st, err := r.buildStorage(ctx)
		if err != nil {
			return nil, err
		}
		r.storage = st
	}

	r.uploads = tasks.NewUploadOrchestrator(tasks.UploadOpts{
		Storage:   r.storage,
		ParentID:  r.config.Storage.ParentID,
		Gate:      r.pipeline,
		Logger:    shared.WithLogger(r.logger, "component", "uploads", "provider", r.storage.Name()),
		Workers:   r.config.Storage.Workers,
		RateLimit: r.config.Storage.RateLimit,
		Notices:   r.notices,
	})
	return r.uploads, nil
}

func (r *Runner) buildStorage(ctx context.Context) (services.StorageProvider, error) {
	cfg := r.config.Storage
	switch cfg.Provider {
	case "", "drive":
		auth := r.authorizer()
		return services.NewDriveStorage(services.DriveOpts{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  auth.RedirectURL(),
			Authorizer:   auth,
		})
	case "s3":
		return services.NewS3StorageFromConfig(ctx, cfg.Region, cfg.Bucket)
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}

// Close releases a database the runner opened itself. Safe to call when the engine was never opened.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	return r.db.Close()
}

// flushNotices prints every notice queued since the last flush.
func (r *Runner) flushNotices() {
	for {
		select {
		case n := <-r.notices:
			r.writePlain("%s %s\n", noticeMarker(n.Level), n.String())
		default:
			return
		}
	}
}

func noticeMarker(level tasks.Level) string {
	switch level {
	case tasks.LevelSuccess:
		return "✓"
	case tasks.LevelWarning:
		return "!"
	case tasks.LevelError:
		return "✗"
	default:
		return "•"
	}
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
