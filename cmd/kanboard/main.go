package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/kanboard/internal/adapters/storage/sqlite"
	"github.com/evanschultz/kanboard/internal/app"
	"github.com/evanschultz/kanboard/internal/config"
	"github.com/evanschultz/kanboard/internal/domain"
	"github.com/evanschultz/kanboard/internal/platform"
	"github.com/evanschultz/kanboard/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var version = "dev"

// program runs the interactive board.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program. Tests swap it for a fake.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// supportedLogLevels lists valid --log-level overrides.
var supportedLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

// main runs the CLI and exits non-zero on failure.
func main() {
	if err := fang.Execute(context.Background(), newRootCommand(os.Stdout, os.Stderr), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree without fang's styling, for tests and embedding.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	logLevel   string
}

// newRootCommand wires the board command and its subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := rootOptions{
		configPath: strings.TrimSpace(os.Getenv("KANBOARD_CONFIG")),
		dbPath:     strings.TrimSpace(os.Getenv("KANBOARD_DB_PATH")),
		appName:    strings.TrimSpace(os.Getenv("KANBOARD_APP_NAME")),
	}
	if devMode, ok := parseBoolEnv("KANBOARD_DEV_MODE"); ok {
		opts.devMode = devMode
	} else {
		opts.devMode = version == "dev"
	}
	if opts.appName == "" {
		opts.appName = platform.DefaultAppName
	}

	root := &cobra.Command{
		Use:     "kanboard",
		Short:   "A local kanban board with drag and drop",
		Long:    "kanboard keeps a single kanban board in a local SQLite file and lets you drag cards between columns with the mouse.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBoard(opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", opts.configPath, "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", opts.dbPath, "sqlite path override")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config and data paths")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev paths and the dev log file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level ("+strings.Join(supportedLogLevels, "|")+")")

	root.AddCommand(
		newExportCommand(&opts, stderr),
		newImportCommand(&opts, stderr),
		newPathsCommand(&opts),
		newInitCommand(&opts),
	)
	return root
}

func newExportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshotFormat, err := snapshotFormatFor(out, format)
			if err != nil {
				return err
			}
			rt, err := openRuntime(*opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.svc.Load(cmd.Context()); err != nil {
				return err
			}
			snap, err := rt.svc.ExportSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			if out == "" || out == "-" {
				return snap.Encode(cmd.OutOrStdout(), snapshotFormat)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := snap.Encode(f, snapshotFormat); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			rt.logger.Info("board exported", "path", out, "format", snapshotFormat, "columns", len(snap.Columns))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format (json|yaml), inferred from --out when empty")
	return cmd
}

func newImportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var in, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the board with a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(in) == "" {
				return errors.New("import requires --in")
			}
			snapshotFormat, err := snapshotFormatFor(in, format)
			if err != nil {
				return err
			}
			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			snap, err := app.DecodeSnapshot(f, snapshotFormat)
			if err != nil {
				return err
			}

			rt, err := openRuntime(*opts, stderr, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			board, err := rt.svc.ImportSnapshot(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			rt.logger.Info("board imported", "path", in, "columns", len(board.Columns), "cards", board.CardCount())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d columns, %d cards\n", len(board.Columns), board.CardCount())
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "snapshot file to import")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format (json|yaml), inferred from --in when empty")
	return cmd
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config, database and log locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveRuntimePaths(*opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "app: %s\n", resolved.appName)
			fmt.Fprintf(out, "config: %s\n", resolved.configPath)
			fmt.Fprintf(out, "data_dir: %s\n", resolved.paths.DataDir)
			fmt.Fprintf(out, "db: %s\n", resolved.dbPath)
			fmt.Fprintf(out, "log_dir: %s\n", resolved.paths.LogDir)
			_, err = fmt.Fprintf(out, "dev_mode: %t\n", resolved.devMode)
			return err
		},
	}
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveRuntimePaths(*opts)
			if err != nil {
				return err
			}
			wrote, err := config.WriteDefault(resolved.configPath, config.Default(resolved.paths.DBPath))
			if err != nil {
				return err
			}
			if !wrote {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "config already exists: %s\n", resolved.configPath)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote config: %s\n", resolved.configPath)
			return err
		},
	}
}

// runBoard starts the interactive board.
func runBoard(opts rootOptions, stderr io.Writer) error {
	rt, err := openRuntime(opts, stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	m := tui.NewModel(
		rt.svc,
		tui.WithCardFieldConfig(tui.CardFieldConfig{
			ShowPriority:    cfg.CardFields.ShowPriority,
			ShowDueDate:     cfg.CardFields.ShowDueDate,
			ShowTags:        cfg.CardFields.ShowTags,
			ShowAssignee:    cfg.CardFields.ShowAssignee,
			ShowDescription: cfg.CardFields.ShowDescription,
		}),
		tui.WithDragConfig(tui.DragConfig{
			Enabled:            cfg.Drag.Enabled,
			ActivationDistance: cfg.Drag.ActivationDistance,
		}),
		tui.WithWIPWarnings(cfg.Board.ShowWIPWarnings),
		tui.WithKeyConfig(tui.KeyConfig{
			AddCard:    cfg.Keys.AddCard,
			EditCard:   cfg.Keys.EditCard,
			DeleteCard: cfg.Keys.DeleteCard,
			CardInfo:   cfg.Keys.CardInfo,
			CopyCard:   cfg.Keys.CopyCard,
			Reload:     cfg.Keys.Reload,
		}),
		tui.WithLogger(rt.logger.Sink()),
	)

	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("tui program loop stopped")
	return nil
}

// resolvedPaths is the outcome of flag, env and platform path resolution.
type resolvedPaths struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	dbPath     string
}

// resolveRuntimePaths applies flag and env overrides on top of platform defaults.
// The database path is final only after the config file is read.
func resolveRuntimePaths(opts rootOptions) (resolvedPaths, error) {
	appName := strings.TrimSpace(opts.appName)
	if appName == "" {
		appName = platform.DefaultAppName
	}
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return resolvedPaths{}, fmt.Errorf("resolve paths: %w", err)
	}
	out := resolvedPaths{
		appName:    appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: paths.ConfigPath,
		dbPath:     paths.DBPath,
	}
	if v := strings.TrimSpace(opts.configPath); v != "" {
		out.configPath = v
	}
	if v := strings.TrimSpace(opts.dbPath); v != "" {
		out.dbPath = v
	}
	return out, nil
}

// runtimeEnv bundles everything a command needs to touch the board.
type runtimeEnv struct {
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// openRuntime loads config, opens logging and storage, and builds the service.
// Interactive runs mute the console sink so log lines never land on the board.
func openRuntime(opts rootOptions, stderr io.Writer, interactive bool) (*runtimeEnv, error) {
	resolved, err := resolveRuntimePaths(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolved.configPath, config.Default(resolved.paths.DBPath))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", resolved.configPath, err)
	}
	if strings.TrimSpace(opts.dbPath) != "" {
		cfg.Database.Path = resolved.dbPath
	}
	if level := strings.ToLower(strings.TrimSpace(opts.logLevel)); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger, err := newRuntimeLogger(stderr, resolved.appName, resolved.devMode, cfg.Logging, resolved.paths.LogDir, time.Now)
	if err != nil {
		return nil, err
	}
	if interactive {
		logger.SetConsoleEnabled(false)
	}
	logger.Info("runtime paths resolved", "config", resolved.configPath, "db", cfg.Database.Path, "dev_mode", resolved.devMode)
	if path := logger.DevLogPath(); path != "" {
		logger.Info("dev file logging enabled", "path", path)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("open sqlite failed", "path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	svc := app.NewService(repo, uuid.NewString, time.Now, app.ServiceConfig{
		ColumnTemplates: columnTemplates(cfg.Board.Columns),
		Hooks:           boardHooks(logger),
		Logger:          logger.Sink(),
	})
	return &runtimeEnv{cfg: cfg, logger: logger, repo: repo, svc: svc}, nil
}

// Close releases storage and the log file.
func (r *runtimeEnv) Close() {
	if r == nil {
		return
	}
	if r.repo != nil {
		if err := r.repo.Close(); err != nil {
			r.logger.Warn("close sqlite failed", "err", err)
		}
	}
	_ = r.logger.Close()
}

// columnTemplates maps configured columns onto service seed templates.
func columnTemplates(in []config.ColumnConfig) []app.ColumnTemplate {
	out := make([]app.ColumnTemplate, 0, len(in))
	for _, column := range in {
		out = append(out, app.ColumnTemplate{
			ID:       column.ID,
			Title:    column.Title,
			MaxCards: column.MaxCards,
			Color:    column.Color,
		})
	}
	return out
}

// boardHooks records committed board changes in the runtime log.
func boardHooks(logger *runtimeLogger) app.Hooks {
	return app.Hooks{
		OnCardMoved: func(cardID, fromColumnID, toColumnID string, index int) {
			logger.Debug("card moved", "card", cardID, "from", fromColumnID, "to", toColumnID, "index", index)
		},
		OnCardAdded: func(columnID string, card domain.Card) {
			logger.Debug("card added", "card", card.ID, "column", columnID)
		},
		OnCardUpdated: func(cardID string, _ domain.CardPatch) {
			logger.Debug("card updated", "card", cardID)
		},
		OnCardDeleted: func(cardID, columnID string) {
			logger.Debug("card deleted", "card", cardID, "column", columnID)
		},
		OnColumnUpdated: func(columnID string, _ domain.ColumnPatch) {
			logger.Debug("column updated", "column", columnID)
		},
		OnColumnDeleted: func(columnID string) {
			logger.Debug("column deleted", "column", columnID)
		},
	}
}

// snapshotFormatFor picks the explicit format, else infers it from the file extension.
func snapshotFormatFor(path, raw string) (app.SnapshotFormat, error) {
	if strings.TrimSpace(raw) != "" {
		return app.ParseSnapshotFormat(raw)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return app.SnapshotFormatYAML, nil
	default:
		return app.SnapshotFormatJSON, nil
	}
}

// parseBoolEnv reads a boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return value, true
}
