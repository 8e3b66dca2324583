package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/podd/internal/notifications"
	"github.com/desertthunder/podd/internal/repositories"
	"github.com/desertthunder/podd/internal/services"
	"github.com/desertthunder/podd/internal/shared"
	"github.com/desertthunder/podd/internal/tasks"
	"github.com/desertthunder/podd/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The config, logger and store are resolved lazily so `podd setup` can run before a config file exists.
type Runner struct {
	configPath string
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	ownLogger  bool // logger was built from config and may be replaced
	logCloser  io.Closer
	output     io.Writer
	input      io.Reader
	terminal   func() bool
	store      *repositories.Store
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Terminal   func() bool // reports whether the interactive picker can be used
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Terminal == nil {
		opts.Terminal = stdioIsTerminal
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		ownLogger:  opts.Logger == nil,
		output:     opts.Output,
		input:      opts.Input,
		terminal:   opts.Terminal,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, addCommand, removeCommand, listCommand, optionsCommand, setCommand, downloadCommand, migrateCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the --config flag and loads the file once. A missing file points the user at `podd setup`.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := r.resolveConfigPath(cmd)
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w (run `podd setup` to create one)", err)
	}
	r.config = config
	return config, r.configureLogger()
}

func (r *Runner) resolveConfigPath(cmd *cli.Command) string {
	if r.configPath == "" {
		r.configPath = shared.ResolveConfigPath(cmd.String("config"))
	}
	return r.configPath
}

func (r *Runner) configureLogger() error {
	if !r.ownLogger || r.logCloser != nil {
		return nil
	}
	logger, closer, err := shared.ConfigureLogger(os.Stderr, r.config.Logging)
	if err != nil {
		return err
	}
	r.logger, r.logCloser = logger, closer
	return nil
}

// log returns the configured logger, falling back to a stderr logger before config is loaded.
func (r *Runner) log() *log.Logger {
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	return r.logger
}

// openStore opens and initializes the database named by the config.
func (r *Runner) openStore(cmd *cli.Command) (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := repositories.Open(config.Database.Path, config.Downloads.Directory)
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// Close releases the store and log file.
func (r *Runner) Close() error {
	var err error
	if r.store != nil {
		err = r.store.Close()
		r.store = nil
	}
	if r.logCloser != nil {
		if cerr := r.logCloser.Close(); err == nil {
			err = cerr
		}
		r.logCloser = nil
	}
	return err
}

func (r *Runner) client(timeout time.Duration) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	return services.NewHTTPClient(timeout)
}

func (r *Runner) manager(cmd *cli.Command) (*tasks.SubscriptionManager, error) {
	store, err := r.openStore(cmd)
	if err != nil {
		return nil, err
	}
	fetcher := services.NewFeedService(r.client(r.config.Feeds.Timeout()), r.config.Downloads.UserAgent)
	return tasks.NewSubscriptionManager(store, fetcher, r.log()), nil
}

func (r *Runner) engine(cmd *cli.Command) (*tasks.RefreshEngine, error) {
	store, err := r.openStore(cmd)
	if err != nil {
		return nil, err
	}

	config := r.config
	fetcher := services.NewFeedService(r.client(config.Feeds.Timeout()), config.Downloads.UserAgent)
	downloader := services.NewDownloadService(r.client(config.Downloads.Timeout()), config.Downloads.UserAgent)
	notifier := notifications.NewService(config.Notifications, r.client(config.Feeds.Timeout()))

	return tasks.NewRefreshEngine(store, fetcher, downloader, services.NewTagService(), notifier, r.log()), nil
}

// refreshOpts maps the download section of the config onto engine options.
func (r *Runner) refreshOpts() tasks.RefreshOpts {
	return tasks.RefreshOpts{
		FeedTimeout: r.config.Feeds.Timeout(),
		Workers:     r.config.Downloads.Workers,
		RateLimit:   r.config.Downloads.RateLimit,
	}
}

// acquireLock takes the run lock that sits next to the database file.
func (r *Runner) acquireLock() (*shared.RunLock, error) {
	return shared.AcquireRunLock(shared.LockPath(r.config.Database.Path))
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

// action wraps a command action so rejected user input is reported on the output and does not fail the process.
// Only config, store and run-lock failures reach main as errors.
func (r *Runner) action(fn cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		err := fn(ctx, cmd)
		if err == nil || !isInputError(err) {
			return err
		}
		r.log().Debug("rejected input", "command", cmd.Name, "error", err)
		return r.writePlain("%s %v\n", ui.Failure("✗"), err)
	}
}

// isInputError reports whether err rejects a single command's input rather than the store or configuration.
func isInputError(err error) bool {
	for _, target := range []error{
		shared.ErrUnknownPodcast,
		shared.ErrAmbiguousSelector,
		shared.ErrInvalidOption,
		shared.ErrUnknownOption,
		shared.ErrInvalidDirectory,
		shared.ErrInvalidInput,
		shared.ErrMissingArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func stdioIsTerminal() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout} {
		fd := f.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false
		}
	}
	return true
}
