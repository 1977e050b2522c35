package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcorbin/zvm/internal/config"
	"github.com/jcorbin/zvm/internal/diag"
	"github.com/jcorbin/zvm/internal/flushio"
	"github.com/jcorbin/zvm/internal/logio"
	"github.com/jcorbin/zvm/internal/panicerr"
	"github.com/jcorbin/zvm/internal/zmachine"
)

func main() {
	logger := logio.New(os.Stderr)
	cmd := newCommand(logger, os.Stdin, os.Stdout)
	if err := cmd.Execute(); err != nil {
		logger.ErrorIf(err)
	}
	os.Exit(logger.ExitCode())
}

func newCommand(logger *logio.Logger, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zvm [flags] story",
		Short:         "Play a Z-machine story file",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetErr(&logio.Writer{Logf: logger.Leveledf("")})
	v := bindFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := settings(v)
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		return play(ctx, args[0], cfg, v.GetBool("trace"), logger, stdin, stdout)
	}
	return cmd
}

// bindFlags defines the command line flags, each also read from a ZVM_*
// environment variable.
func bindFlags(cmd *cobra.Command) *viper.Viper {
	flags := cmd.Flags()
	flags.String("config", "", "settings file; defaults to ./zvm.toml or the user config directory")
	flags.StringArray("script", nil, "read commands from a script file before the keyboard; repeatable")
	flags.String("transcript", "", "write the transcript (output stream 2) to a file")
	flags.String("record", "", "write a command record (output stream 4) to a file")
	flags.Int("undo-slots", 0, "maximum number of undo states kept; 0 is unbounded")
	flags.Int("undo-bytes", 0, "maximum bytes of undo history kept; 0 is unbounded")
	flags.Int("stack-limit", 0, "call depth past which the story halts; 0 is unbounded")
	flags.Bool("no-autoundo", false, "do not take undo checkpoints for stories that make none")
	flags.String("diagnostics", "", "where diagnostics go: inline, stderr or off")
	flags.String("level", "", "least severe diagnostics shown: warn, port, error or fatal")
	flags.Bool("trace", false, "log every instruction to stderr")
	flags.Bool("no-color", false, "disable colored output")
	flags.Int64("seed", 0, "seed the random number generator")
	flags.Int("rows", 0, "screen height reported to the story")
	flags.Int("cols", 0, "screen width reported to the story")

	v := viper.New()
	v.SetEnvPrefix("ZVM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return v
}

// settings layers flags and ZVM_* environment over the configuration file,
// which in turn is layered over config.Default.
func settings(v *viper.Viper) (config.Config, error) {
	cfg := config.Default()
	path := v.GetString("config")
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path, _ = config.Find(wd)
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	// viper consults defaults before unchanged flag defaults
	v.SetDefault("script", cfg.Scripts)
	v.SetDefault("transcript", cfg.Transcript)
	v.SetDefault("record", cfg.Record)
	v.SetDefault("undo-slots", cfg.Undo.Slots)
	v.SetDefault("undo-bytes", cfg.Undo.Bytes)
	v.SetDefault("stack-limit", cfg.StackLimit)
	v.SetDefault("no-autoundo", !cfg.Undo.Auto)
	v.SetDefault("diagnostics", cfg.Diagnostics.Mode)
	v.SetDefault("level", cfg.Diagnostics.Level)
	v.SetDefault("no-color", cfg.NoColor)
	v.SetDefault("seed", cfg.Seed)
	v.SetDefault("rows", cfg.Screen.Rows)
	v.SetDefault("cols", cfg.Screen.Cols)

	cfg.Scripts = v.GetStringSlice("script")
	cfg.Transcript = v.GetString("transcript")
	cfg.Record = v.GetString("record")
	cfg.Undo.Slots = v.GetInt("undo-slots")
	cfg.Undo.Bytes = v.GetInt("undo-bytes")
	cfg.Undo.Auto = !v.GetBool("no-autoundo")
	cfg.StackLimit = v.GetInt("stack-limit")
	cfg.Diagnostics.Mode = strings.ToLower(v.GetString("diagnostics"))
	cfg.Diagnostics.Level = v.GetString("level")
	cfg.NoColor = v.GetBool("no-color")
	cfg.Seed = v.GetInt64("seed")
	cfg.Screen.Rows = v.GetInt("rows")
	cfg.Screen.Cols = v.GetInt("cols")
	return cfg, cfg.Validate()
}

func play(
	ctx context.Context,
	storyPath string,
	cfg config.Config,
	trace bool,
	logger *logio.Logger,
	stdin io.Reader, stdout io.Writer,
) (rerr error) {
	story, err := os.ReadFile(storyPath)
	if err != nil {
		return err
	}

	if cfg.NoColor {
		color.NoColor = true
	}
	logger.Style = levelStyle

	con := newConsole(stdin, flushio.NewWriteFlusher(stdout))
	con.color = !color.NoColor
	con.cols = cfg.Screen.Cols
	con.saveName = strings.TrimSuffix(filepath.Base(storyPath), filepath.Ext(storyPath)) + ".qzl"
	defer func() {
		if cerr := con.Close(); rerr == nil {
			rerr = cerr
		}
	}()
	for _, name := range cfg.Scripts {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		con.script.Queue = append(con.script.Queue, f)
	}

	opts := []zmachine.Option{
		zmachine.WithTerminal(con),
		zmachine.WithUndoLimits(cfg.Undo.Slots, cfg.Undo.Bytes),
		zmachine.WithAutoUndo(cfg.Undo.Auto),
		zmachine.WithStackLimit(cfg.StackLimit),
		zmachine.WithScreenSize(cfg.Screen.Rows, cfg.Screen.Cols),
	}
	if cfg.Seed != 0 {
		opts = append(opts, zmachine.WithSeed(cfg.Seed))
	}
	switch cfg.Diagnostics.Mode {
	case config.ModeInline:
		opts = append(opts, zmachine.WithInlineDiagnostics(cfg.Level()))
	case config.ModeStderr:
		opts = append(opts, zmachine.WithDiagnostics(func(rep diag.Report) {
			logger.Printf(rep.Level.String(), "%v: %v (%d) @%#x", rep.Category, rep.Message, rep.Value, rep.PC)
		}, cfg.Level()))
	case config.ModeOff:
		opts = append(opts, zmachine.WithDiagnostics(func(diag.Report) {}, diag.LevelFatal))
	}
	var tracer *log.Logger
	if trace {
		tracer = traceLogger(cfg.NoColor)
		con.logf = tracer.Debugf
		opts = append(opts, zmachine.WithLogf(tracer.Debugf))
	}
	var created []io.Closer
	for _, out := range []struct {
		path string
		opt  func(io.Writer) zmachine.Option
	}{
		{cfg.Transcript, zmachine.WithTranscript},
		{cfg.Record, zmachine.WithCommandRecord},
	} {
		if out.path == "" {
			continue
		}
		f, err := createFile(out.path)
		if err != nil {
			for _, c := range created {
				c.Close()
			}
			return err
		}
		created = append(created, f)
		opts = append(opts, out.opt(f))
	}

	// New closes the created files when it fails
	vm, err := zmachine.New(story, opts...)
	if err != nil {
		return fmt.Errorf("%v: %w", storyPath, err)
	}
	defer func() {
		if cerr := vm.Close(); rerr == nil {
			rerr = cerr
		}
	}()
	if err := vm.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if tracer != nil {
			lw := &logio.Writer{Logf: tracer.Errorf}
			vm.Dump(lw)
			if stack := panicerr.Stack(err); stack != "" {
				fmt.Fprintf(lw, "# Go Stack\n%s", stack)
			}
			lw.Close()
		}
		if panicerr.IsPanic(err) || panicerr.IsExit(err) {
			return fmt.Errorf("%v @%#x: interpreter failure: %w", storyPath, vm.PC(), err)
		}
		return fmt.Errorf("%v @%#x: %w", storyPath, vm.PC(), err)
	}
	return nil
}

func traceLogger(noColor bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:  log.DebugLevel,
		Prefix: "zvm",
	})
	logger.SetColorProfile(termenv.ANSI256)
	if noColor {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger
}

var createFile = os.Create

var (
	red     = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

func levelStyle(level string) string {
	switch level {
	case "ERROR", diag.LevelError.String(), diag.LevelFatal.String():
		return red(level)
	case diag.LevelWarn.String():
		return yellow(level)
	case diag.LevelPort.String():
		return magenta(level)
	}
	return level
}
