package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idelchi/diskscope/internal/command"
	"github.com/idelchi/diskscope/internal/config"
	"github.com/idelchi/diskscope/internal/diskusage"
	"github.com/idelchi/diskscope/internal/integration"
	"github.com/idelchi/diskscope/internal/logging"
	"github.com/idelchi/diskscope/internal/server"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Execute runs the CLI with the process arguments. SIGINT and SIGTERM cancel
// the running command.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.Command().ExecuteContext(ctx)
}

// Command builds the root command and all subcommands.
func (c CLI) Command() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "diskscope",
		Short: "Find what takes up space on disk",
		Long: heredoc.Doc(`
			diskscope walks a directory tree in parallel and reports every file and
			directory whose size reaches a limit. A directory's size is the sum of all
			regular files below it.

			Settings are read from flags, DISKSCOPE_* environment variables, a .env
			file and an optional YAML config file, in that order of precedence.

			The 'init' command prints a zsh integration that pipes the report into
			'fzf' and deletes the selected paths.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")

	env := &environment{configFile: &configFile}

	root.AddCommand(
		analyzeCommand(env),
		deleteCommand(env),
		greetCommand(),
		serveCommand(env),
		initCommand(),
	)

	root.SetVersionTemplate("{{.Version}}\n")

	return root
}

// environment loads configuration and logging for a subcommand.
type environment struct {
	configFile *string
}

func (e *environment) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(*e.configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	log.Debug("configuration loaded", zap.Any("config", cfg))

	return cfg, log, nil
}

func analyzeCommand(env *environment) *cobra.Command {
	var filter itemFilter

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Report files and directories at or above a size limit",
		Long: heredoc.Doc(`
			Walk path (the current directory by default) and report every regular file
			and directory whose size is at least --min-size. Symbolic links are not
			followed. Entries that cannot be read count as empty.
		`),
		Example: heredoc.Doc(`
			diskscope analyze ~/Downloads --min-size 100MB
			diskscope analyze / --dirs-only --output json
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // Stderr sync errors are not actionable

			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			return analyze(cmd.Context(), analyzeRequest{
				cfg:    cfg,
				log:    log,
				path:   path,
				filter: filter,
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.String("min-size", "0B", "Minimum size to report (e.g., 10MB)")
	flags.IntP("workers", "w", 0, "Number of concurrent workers (0 = number of CPUs)")
	flags.String("strategy", string(diskusage.StrategyBottomUp), "Directory sizing strategy: bottomup or rewalk")
	flags.StringP("output", "o", "table", "Output format: table or json")
	flags.BoolVar(&filter.filesOnly, "files-only", false, "Report files only")
	flags.BoolVar(&filter.dirsOnly, "dirs-only", false, "Report directories only")

	cmd.MarkFlagsMutuallyExclusive("files-only", "dirs-only")

	return cmd
}

func deleteCommand(env *environment) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a file or a directory tree",
		Long: heredoc.Doc(`
			Delete path. A directory is removed with everything below it. A symbolic
			link is removed itself, never its target.

			Without --yes the deletion is confirmed interactively. On non-interactive
			input --yes is required.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // Stderr sync errors are not actionable

			return remove(deleteRequest{
				log:    log,
				path:   args[0],
				yes:    yes,
				stdin:  cmd.InOrStdin(),
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")

	return cmd
}

func greetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "greet [name]",
		Short: "Print a greeting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), command.Greeting(name))

			return err
		},
	}
}

func serveCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyze_directory, delete_path and greet commands over HTTP",
		Long: heredoc.Doc(`
			Start an HTTP server for a UI process.

			  POST /invoke/<command>   JSON arguments in, {"result": ...} or {"error": {...}} out
			  GET  /healthz            liveness probe

			Only requests with Content-Type application/json are accepted, and browser
			requests must come from one of --allowed-origins.

			The server stops gracefully on SIGINT or SIGTERM.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := env.load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // Stderr sync errors are not actionable

			scanner := diskusage.NewScanner(cfg.ScanOptions(), log)
			srv := server.New(command.New(scanner, log), cfg.ServerOptions(), log)

			return srv.Listen(cmd.Context(), cfg.Addr)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "127.0.0.1:7878", "Listen address")
	flags.StringSlice("allowed-origins", server.DefaultAllowedOrigins, "Browser origins allowed to invoke commands")
	flags.IntP("workers", "w", 0, "Number of concurrent workers per scan (0 = number of CPUs)")
	flags.String("strategy", string(diskusage.StrategyBottomUp), "Directory sizing strategy: bottomup or rewalk")

	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Output the init script for shell usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rendered, err := integration.Render()
			if err != nil {
				return fmt.Errorf("rendering integration script: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)

			return err
		},
	}
}
