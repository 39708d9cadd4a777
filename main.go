// Package main provides the entry point for the sentispeech CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/analysis"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/textproc"
	"github.com/dgnsrekt/sentispeech/ui"
	"github.com/dgnsrekt/sentispeech/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	configFile  string
	style       string
	width       uint
	mouse       bool
	plain       bool
	local       bool
	speak       bool
	watch       bool
	debug       bool
	noEmotion   bool

	rootCmd = &cobra.Command{
		Use:   "sentispeech [SOURCE|DIR]",
		Short: "Analyse the sentiment of a document and read it aloud",
		Long: paragraph(
			fmt.Sprintf("\nAnalyse the sentiment of every paragraph and read it aloud, %s!", keyword("with feeling")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable markdown source.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(ctx context.Context, arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") { //nolint:nestif
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.DefaultClient.Do(req) //nolint:bodyclose
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{resp.Body, u.String()}, nil
	}

	// a directory:
	if len(arg) == 0 {
		// use the current working dir if no argument was supplied
		arg = "."
	}
	st, err := os.Stat(arg)
	if err == nil && st.IsDir() { //nolint:nestif
		var src *source
		_ = filepath.Walk(arg, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			for _, v := range readmeNames {
				if strings.EqualFold(filepath.Base(path), v) {
					r, err := os.Open(path)
					if err != nil {
						continue
					}

					u, _ := filepath.Abs(path)
					src = &source{r, u}

					// abort filepath.Walk
					return errors.New("source found")
				}
			}
			return nil
		})

		if src != nil {
			return src, nil
		}

		return nil, errors.New("missing markdown source")
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = utils.ExpandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	local = viper.GetBool("local")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if speak && watch {
		return errors.New("cannot use both speak and watch")
	}

	rate := viper.GetFloat64("rate")
	if rate < 0.5 || rate > 2 {
		return fmt.Errorf("rate must be between 0.5 and 2.0, got %.2f", rate)
	}
	if !local && viper.GetString("endpoint") == "" {
		return errors.New("no analysis endpoint configured, set endpoint or use --local")
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// We want to use a special no-TTY style, when stdout is not a terminal
	// and there was no specific style passed by arg
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var src *source
	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		src = &source{reader: os.Stdin}
	} else {
		arg := ""
		if len(args) > 0 {
			arg = args[0]
		}
		if src, err = sourceFromArg(ctx, arg); err != nil {
			return err
		}
	}
	defer src.reader.Close() //nolint:errcheck

	b, err := io.ReadAll(src.reader)
	if err != nil {
		return fmt.Errorf("unable to read from reader: %w", err)
	}
	b = utils.RemoveFrontmatter(b)

	if !plain && !speak && term.IsTerminal(int(os.Stdout.Fd())) {
		path := ""
		if src.URL != "" && !isURL(src.URL) {
			path = src.URL
		}
		return runTUI(ctx, path, src.URL, b)
	}
	return runPlain(ctx, b, os.Stdout)
}

// newAnalyzer returns the configured analyzer and, for a remote one, the
// wake-up poll to run before analysing.
func newAnalyzer() (analysis.Analyzer, func(context.Context, func(int, int)) error) {
	if local {
		return analysis.NewLocal(), nil
	}
	c := analysis.NewClient(viper.GetString("endpoint"))
	if !viper.GetBool("wait_ready") {
		return c, nil
	}
	return c, c.WaitReady
}

func runPlain(ctx context.Context, md []byte, w io.Writer) error {
	analyzer, waitReady := newAnalyzer()
	if waitReady != nil {
		err := waitReady(ctx, func(attempt, max int) {
			log.Info("waking up the analysis server", "attempt", attempt, "max", max)
		})
		if err != nil {
			return fmt.Errorf("unable to reach analysis server: %w", err)
		}
	}

	res, err := analyzer.Analyze(ctx, textproc.Flatten(md))
	if err != nil {
		return fmt.Errorf("unable to analyse: %w", err)
	}

	// initialize glamour
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		utils.GlamourStyle(style),
		glamour.WithWordWrap(int(width)), //nolint:gosec
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(ui.Report(res))
	if err != nil {
		return fmt.Errorf("unable to render report: %w", err)
	}
	if _, err = fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}

	if speak {
		return speakAll(ctx, res, w)
	}
	return nil
}

// speakAll narrates res headlessly and returns once playback goes idle.
func speakAll(ctx context.Context, res *sentiment.Result, w io.Writer) error {
	if res.Len() == 0 {
		return nil
	}
	l := newPrintListener(res, w)
	n, err := startNarrator(ctx, l)
	if err != nil {
		return err
	}
	defer n.Close() //nolint:errcheck

	n.engine.EnqueueAll(res)
	select {
	case <-l.idle:
		return nil
	case <-ctx.Done():
		n.engine.Stop()
		return nil
	}
}

func runTUI(ctx context.Context, path, note string, content []byte) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = path
	cfg.Note = filepath.Base(note)
	if note == "" {
		cfg.Note = "stdin"
	}
	cfg.Watch = watch && path != ""
	cfg.EnableMouse = mouse
	cfg.MaxWidth = width

	analyzer, waitReady := newAnalyzer()
	listener := ui.NewListener()
	deps := ui.Deps{
		Analyzer:  analyzer,
		WaitReady: waitReady,
		Listener:  listener,
		Load: func() ([]byte, error) {
			if path == "" {
				return content, nil
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("unable to read file: %w", err)
			}
			return utils.RemoveFrontmatter(b), nil
		},
	}

	n, err := startNarrator(ctx, listener)
	if err != nil {
		// results are still worth showing without a voice
		log.Warn("narration unavailable", "error", err)
	} else {
		defer n.Close() //nolint:errcheck
		deps.Narrator = n.engine
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Bool("debug", false, "write debug logs")
	rootCmd.PersistentFlags().String("engine", "", "speech engine: espeak, piper, gtts or tone")
	rootCmd.PersistentFlags().String("voice", "", "preferred voice name")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path for the plain report")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to disable)")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "print a report instead of starting the TUI")
	rootCmd.Flags().BoolVarP(&local, "local", "l", false, "analyse in process instead of calling the endpoint")
	rootCmd.Flags().BoolVar(&speak, "speak", false, "print the report and read every paragraph aloud")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "analyse again when the file changes (TUI-mode only)")
	rootCmd.Flags().String("endpoint", "", "analysis endpoint URL")
	rootCmd.Flags().Float64("rate", 1, "base speaking rate, 0.5 to 2.0")
	rootCmd.Flags().BoolVar(&noEmotion, "no-emotion", false, "speak without sentiment shaping")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("local", rootCmd.Flags().Lookup("local"))
	_ = viper.BindPFlag("endpoint", rootCmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("endpoint", "http://localhost:8080/api/analyze")
	viper.SetDefault("wait_ready", true)
	viper.SetDefault("engine", "espeak")
	viper.SetDefault("rate", 1.0)
	viper.SetDefault("emotion", true)
	viper.SetDefault("settle", 250*time.Millisecond)
	viper.SetDefault("resume_remaining", false)

	viper.SetDefault("espeak.binary", "espeak-ng")
	viper.SetDefault("piper.binary", "piper")
	viper.SetDefault("piper.model", "")
	viper.SetDefault("gtts.binary", "gtts-cli")
	viper.SetDefault("gtts.requests_per_minute", 50)

	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.memory_mb", 64)
	viper.SetDefault("cache.disk_mb", 512)
	viper.SetDefault("cache.ttl_days", 7)

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_size", 4096)

	rootCmd.AddCommand(configCmd, manCmd, serveCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "sentispeech")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "sentispeech")}, dirs...)
	}

	if c := os.Getenv("SENTISPEECH_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("sentispeech")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("sentispeech")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "sentispeech.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
