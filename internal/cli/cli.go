// Package cli implements the pbgen command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App holds what the commands read from and write to, so tests can run them
// against an in-memory filesystem and buffers.
type App struct {
	Fs      afero.Fs
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Version string

	config *viper.Viper
	logger *slog.Logger
}

func New(version string) *App {
	return &App{
		Fs:      afero.NewOsFs(),
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
	}
}

// Execute runs the command line given by args and prints a failure to Err.
func (a *App) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		a.printError(err)
	}
	return err
}

func (a *App) Command() *cobra.Command {
	var (
		configFile string
		debug      bool
	)
	root := &cobra.Command{
		Use:           "pbgen",
		Short:         "Compile proto3 schemas into Go types and wire codecs",
		Version:       a.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(a.Err, debug)
			v, err := a.loadConfig(configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			a.config = v
			return nil
		},
	}
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	flags := root.PersistentFlags()
	flags.BoolVarP(&debug, "debug", "d", false, "log debug output")
	flags.StringVar(&configFile, "config", "", "config file (default .pbgen.yaml in . or the home directory)")

	root.AddCommand(
		a.generateCommand(),
		a.decodeCommand(),
		a.encodeCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.Out, "pbgen %s\n", a.Version)
			return err
		},
	}
}

func (a *App) printError(err error) {
	color.New(color.FgRed, color.Bold).Fprint(a.Err, "error: ")
	fmt.Fprintln(a.Err, err)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
