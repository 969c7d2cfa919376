package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/clawscli/mesa/internal/app"
	"github.com/clawscli/mesa/internal/config"
	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/engine"
	"github.com/clawscli/mesa/internal/log"
	"github.com/clawscli/mesa/internal/store"
)

// version is set by ldflags during build
var version = "dev"

// defaultSyntheticRows is used when neither flags nor config name a source
const defaultSyntheticRows = 10000

// isTerminal reports whether stdout is attached to a terminal
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts mesa with args and returns the process exit code. Deferred
// cleanup runs before the caller exits.
func run(args []string) int {
	opts, err := parseFlagsFromArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'mesa --help' for usage")
		return 2
	}

	if opts.configFile != "" {
		config.SetConfigPath(opts.configFile)
	}

	// Enable logging if log file specified
	if opts.logFile != "" {
		if err := log.EnableFile(opts.logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file %s: %v\n", opts.logFile, err)
		}
	}

	if !isTerminal() {
		fmt.Fprintln(os.Stderr, "Error: mesa needs a terminal on stdout")
		return 1
	}

	fileCfg := config.File()
	if opts.persist != nil {
		fileCfg.SetPersistenceEnabled(*opts.persist)
	}

	engineOpts, err := buildOptions(opts, fileCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sources, err := buildSources(opts, fileCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	eng, err := engine.New(engineOpts, nil, 0)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			log.Error("invalid table options", "field", ve.Field, "value", ve.Value, "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer eng.Close()

	log.Info("mesa started", "sources", len(sources), "persist", engineOpts.Store != nil, "immediate", engineOpts.ScrollImmediate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	application := app.New(ctx, eng, sources, fileCfg.LoadTimeout())
	defer application.Close()

	p := tea.NewProgram(application, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		log.Error("program exited", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type cliOptions struct {
	configFile string
	logFile    string
	rows       int
	csvFiles   []string
	persist    *bool
	stateFile  string
	debounce   time.Duration
	immediate  bool
}

// parseFlagsFromArgs parses the given args and returns options (testable)
func parseFlagsFromArgs(args []string) (cliOptions, error) {
	opts := cliOptions{}
	showHelp := false
	showVersion := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "--config":
			if i+1 < len(args) {
				i++
				opts.configFile = args[i]
			}
		case "-l", "--log-file":
			if i+1 < len(args) {
				i++
				opts.logFile = args[i]
			}
		case "-n", "--rows":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil || n < 0 {
					return opts, fmt.Errorf("invalid row count: %s", args[i])
				}
				opts.rows = n
			}
		case "--csv":
			if i+1 < len(args) {
				i++
				for _, p := range strings.Split(args[i], ",") {
					if p = strings.TrimSpace(p); p != "" {
						opts.csvFiles = append(opts.csvFiles, p)
					}
				}
			}
		case "--state":
			t := true
			opts.persist = &t
		case "--no-state":
			f := false
			opts.persist = &f
		case "--state-file":
			if i+1 < len(args) {
				i++
				opts.stateFile = args[i]
			}
		case "--debounce":
			if i+1 < len(args) {
				i++
				d, err := time.ParseDuration(args[i])
				if err != nil || d <= 0 {
					return opts, fmt.Errorf("invalid debounce: %s", args[i])
				}
				opts.debounce = d
			}
		case "--immediate":
			opts.immediate = true
		case "-h", "--help":
			showHelp = true
		case "-v", "--version":
			showVersion = true
		}
	}

	if showVersion {
		fmt.Printf("mesa %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printUsage()
		os.Exit(0)
	}

	return opts, nil
}

func printUsage() {
	fmt.Println("mesa - A virtualized terminal table for large datasets")
	fmt.Println()
	fmt.Println("Usage: mesa [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --csv <path>[,path2,...]")
	fmt.Println("        Load rows from CSV file(s) (comma-separated or repeated)")
	fmt.Println("  -n, --rows <count>")
	fmt.Println("        Generate synthetic rows (default when no source is configured)")
	fmt.Println("  --state")
	fmt.Println("        Persist sort, search and column state between runs")
	fmt.Println("  --no-state")
	fmt.Println("        Disable state persistence (overrides config file)")
	fmt.Println("  --state-file <path>")
	fmt.Println("        Use custom state file instead of ~/.config/mesa/state.ini")
	fmt.Println("  --debounce <duration>")
	fmt.Println("        Scroll settle delay (e.g., 50ms, 200ms)")
	fmt.Println("  --immediate")
	fmt.Println("        Also move the window on the first scroll event (toggle with I)")
	fmt.Println("  -c, --config <path>")
	fmt.Println("        Use custom config file instead of ~/.config/mesa/config.yaml")
	fmt.Println("  -l, --log-file <path>")
	fmt.Println("        Enable debug logging to specified file")
	fmt.Println("  -v, --version")
	fmt.Println("        Show version")
	fmt.Println("  -h, --help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mesa                              Browse 10000 synthetic rows")
	fmt.Println("  mesa -n 1000000                   Browse a million synthetic rows")
	fmt.Println("  mesa --csv hosts.csv              Browse a CSV file")
	fmt.Println("  mesa --csv a.csv,b.csv --state    Browse two files and remember the view")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  MESA_CONFIG=<path>       Use custom config file")
}

// buildOptions layers the config file and flags onto the terminal defaults.
func buildOptions(opts cliOptions, fileCfg *config.FileConfig) (config.Options, error) {
	o := fileCfg.Options(config.TerminalOptions())
	if opts.debounce > 0 {
		o.ScrollDebounce = opts.debounce
	}
	if opts.immediate {
		o.ScrollImmediate = true
	}

	if !fileCfg.PersistenceEnabled() {
		return o, nil
	}
	path := opts.stateFile
	if path == "" {
		p, err := fileCfg.StatePath()
		if err != nil {
			return o, fmt.Errorf("resolve state file: %w", err)
		}
		path = p
	}
	o.Store = store.NewINI(path)
	o.StorageKey = fileCfg.StorageKey()
	o.StorageHash = fileCfg.StorageHash()
	log.Debug("state persistence enabled", "path", path, "key", o.StorageKey)
	return o, nil
}

// buildSources picks the data sources: flags first, then the config file,
// then synthetic rows.
func buildSources(opts cliOptions, fileCfg *config.FileConfig) ([]dataset.Source, error) {
	var sources []dataset.Source
	for _, p := range opts.csvFiles {
		sources = append(sources, dataset.CSVSource{Path: p})
	}
	if opts.rows > 0 {
		sources = append(sources, dataset.Synthetic{Count: opts.rows})
	}
	if len(sources) > 0 {
		return sources, nil
	}

	for _, sc := range fileCfg.Sources() {
		src, err := sc.Source()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) > 0 {
		return sources, nil
	}
	return []dataset.Source{dataset.Synthetic{Count: defaultSyntheticRows}}, nil
}
