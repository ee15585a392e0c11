// Package run implements the decoreg command line in a testable way.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toejough/decoreg"
	"github.com/toejough/decoreg/internal/config"
	"github.com/toejough/decoreg/internal/ctxlog"
)

// Exported variables.
var (
	// ErrConfigExists is returned by `config init` when the file is already there.
	ErrConfigExists = errors.New("config file already exists")
	// ErrWouldChange is returned by `transform --check` when at least one file would change.
	ErrWouldChange = errors.New("files would change")
	// Version is reported by the version command. Release builds set it with -ldflags.
	Version = "dev" //nolint:gochecknoglobals
)

// FileSystem abstracts the file operations the commands need.
type FileSystem interface {
	Getwd() (string, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// Run executes the decoreg command line. args includes the program name, like os.Args. Files are
// read and written through fileSys; command output goes to stdout and logs to stderr.
func Run(ctx context.Context, args []string, fileSys FileSystem, stdout, stderr io.Writer) error {
	a := &app{fileSys: fileSys, stdout: stdout, stderr: stderr, v: viper.New()}

	root := newRootCmd(a)
	root.SetOut(stdout)
	root.SetErr(stderr)

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	root.SetArgs(cmdArgs)

	err := root.ExecuteContext(ctx)
	if err != nil {
		return fmt.Errorf("decoreg: %w", err)
	}

	return nil
}

// unexported constants.
const (
	envPrefix = "DECOREG"
	// skipSetup marks commands that run without loading the project config.
	skipSetup = "decoreg/skip-setup"
)

// unexported variables.
var (
	errBadGlob = errors.New("invalid glob pattern")
)

// app holds the state shared by the commands of one invocation.
type app struct {
	fileSys FileSystem
	stdout  io.Writer
	stderr  io.Writer
	v       *viper.Viper

	logger *slog.Logger
	file   *config.File
	pass   *decoreg.Pass
}

// setup builds the logger and, unless the command opts out, loads the config and the pass.
// Flags and DECOREG_* environment variables override config file values.
func (a *app) setup(cmd *cobra.Command) error {
	a.logger = newLogger(a.v.GetString("log-level"), a.v.GetString("log-format"), a.stderr)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), a.logger))

	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	file, err := a.loadConfig()
	if err != nil {
		return err
	}

	cfg, err := file.PassConfig()
	if err != nil {
		return err
	}

	pass, err := decoreg.New(cfg)
	if err != nil {
		return err
	}

	a.file, a.pass = file, pass

	return nil
}

func (a *app) loadConfig() (*config.File, error) {
	path := a.v.GetString("config")

	file, found, err := config.Load(a.fileSys, path)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("config loaded", "path", path, "found", found)

	if a.v.IsSet("annotation") {
		file.Annotation = a.v.GetString("annotation")
	}

	if a.v.IsSet("naming") {
		file.Naming = a.v.GetString("naming")
	}

	for _, pattern := range append(append([]string{}, file.Include...), file.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%s: %w: %q", path, errBadGlob, pattern)
		}
	}

	return file, nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.initConfig(force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config, after flags and environment",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := a.file.Encode()
			if err != nil {
				return err
			}

			_, err = a.stdout.Write(data)

			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)

	return cmd
}

func (a *app) initConfig(force bool) error {
	const configPerm = 0o644

	path := a.v.GetString("config")

	if _, err := a.fileSys.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
	}

	data, err := config.Default().Encode()
	if err != nil {
		return err
	}

	err = a.fileSys.WriteFile(path, data, configPerm)
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	fmt.Fprintf(a.stdout, "%s written successfully.\n", path)

	return nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "decoreg",
		Short: "Register decorated classes right after their declaration",
		Long: `decoreg rewrites JavaScript modules so that every class declaration marked with the
configured decorator (default @component()) is registered with the registrar module
right after it is declared. The registrar and storage modules are imported once each,
under names that collide with nothing else in the module.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", config.FileName, "config file")
	flags.String("annotation", "", "decorator name to look for (overrides the config file)")
	flags.String("naming", "", "spelling of generated names: plain or underscore (overrides the config file)")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Int("jobs", runtime.GOMAXPROCS(0), "number of files processed in parallel")
	flags.Bool("no-cache", false, "do not read or write the disk cache")

	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(newTransformCmd(a), newWatchCmd(a), newConfigCmd(a), newVersionCmd(a))

	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "decoreg %s\n", Version)
		},
	}
}
