package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"oris/internal/evaluator"
	"oris/internal/lexer"
	"oris/internal/object"
	"oris/internal/parser"
	"oris/internal/repl"
	"oris/internal/seed"
	"oris/internal/store"
	"oris/internal/util"
)

var (
	// Version is the current version of the oris binary, set at link time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel  string
	logFile   string
	logFormat string
	// config vars
	configPath string
	prelude    string
	dbDriver   string
	dbDSN      string
	journal    bool
	persist    bool
	debugAST   bool
	debugText  bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configPath, "config", "", "Configuration file (default $ORIS_HOME/oris.toml)")
	// evaluator config
	flag.StringVar(&prelude, "prelude", "", "TOML file of bindings defined before the program runs")
	// store config
	flag.StringVar(&dbDriver, "db-driver", util.DefaultStoreDriver, "Store driver: sqlite3, mysql, postgres")
	flag.StringVar(&dbDSN, "db-dsn", "", "Store data source name (no store when empty)")
	flag.BoolVar(&journal, "journal", false, "Record every evaluated source in the store")
	flag.BoolVar(&persist, "persist", false, "Restore and save REPL globals through the store")
	// parser config
	flag.BoolVar(&debugAST, "debug-ast", false, "Render the AST as a JSON file")
	flag.BoolVar(&debugText, "debug-ast-text", false, "Print the AST as indented text on stderr")
	// log config
	flag.StringVar(&logLevel, "log-level", util.DefaultLogLevel, "Log level: debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
	flag.StringVar(&logFormat, "log-format", util.DefaultLogFormat, "Log format: json, text")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return 0
	}

	if help {
		printHelp()
		return 0
	}

	config := util.DefaultConfiguration()
	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	if err := loadConfigFile(&config); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	applyFlags(&config)

	// Creates a new Logger that writes JSON (or text) records
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(config.LogLevel),
	}
	logWriter := configureLogWriter(config.LogFile)
	var handler slog.Handler
	if config.LogFormat == "text" {
		handler = slog.NewTextHandler(logWriter, loggerOptions)
	} else {
		handler = slog.NewJSONHandler(logWriter, loggerOptions)
	}
	slog.SetDefault(slog.New(handler))

	ctx := context.Background()
	env := evaluator.NewEnvironment(os.Stdout)

	if config.Prelude != "" {
		bindings, err := seed.LoadFile(config.Prelude)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: prelude: %v\n", err)
			return 1
		}
		seed.Apply(env, bindings)
		slog.Info("prelude loaded", slog.String("path", config.Prelude), slog.Int("bindings", len(bindings)))
	}

	var st *store.Store
	if config.Store.Enabled() {
		var err error
		st, err = store.Open(ctx, config.Store.Driver, config.Store.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer st.Close()
	}

	if flag.NArg() > 0 {
		return runFile(ctx, flag.Arg(0), env, st, config)
	}

	session := repl.NewSession(env).WithStore(st, config.Store.Journal)
	if config.Store.Persist {
		if err := session.Restore(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	if err := repl.StartInteractive(config.Repl, session); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if config.Store.Persist {
		if err := session.Persist(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

// runFile evaluates the file at path and prints its value unless it is unit.
func runFile(ctx context.Context, path string, env *object.Environment, st *store.Store, config util.Configuration) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if config.DebugJsonAST || config.DebugTxtAST {
		dumpAST(path, src, config)
	}

	result, err := evaluator.Evaluate(env, src)

	if st != nil && config.Store.Journal {
		entry := store.Run{Source: string(src)}
		if err != nil {
			entry.Error = err.Error()
		} else if result != object.UNIT {
			entry.Result = result.Inspect()
		}
		if jerr := st.RecordRun(ctx, entry); jerr != nil {
			slog.Warn("failed to record run", slog.Any("error", jerr))
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, object.RenderError(src, err))
		return 1
	}
	if result != object.UNIT {
		fmt.Println(result.Inspect())
	}
	return 0
}

// dumpAST writes the syntax tree of src next to path. A syntax error is left
// for the evaluation to report.
func dumpAST(path string, src []byte, config util.Configuration) {
	program, err := parser.New(lexer.New(src)).ParseProgram()
	if err != nil {
		slog.Debug("no AST to dump", slog.Any("error", err))
		return
	}

	if config.DebugJsonAST {
		target := path + ".ast.json"
		if err := parser.WriteASTToJSON(program, target); err != nil {
			slog.Warn("failed to write AST", slog.String("path", target), slog.Any("error", err))
		}
	}
	if config.DebugTxtAST {
		fmt.Fprintln(os.Stderr, parser.RenderASTAsText(program, 0))
	}
}

// loadConfigFile overlays the -config file, or the default one when it exists.
func loadConfigFile(config *util.Configuration) error {
	path := configPath
	if path == "" {
		path = util.DefaultConfigPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	return util.LoadConfiguration(path, config)
}

// applyFlags copies the flags given on the command line over config.
func applyFlags(config *util.Configuration) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		case "log-format":
			config.LogFormat = logFormat
		case "prelude":
			config.Prelude = prelude
		case "db-driver":
			config.Store.Driver = dbDriver
		case "db-dsn":
			config.Store.DSN = dbDSN
		case "journal":
			config.Store.Journal = journal
		case "persist":
			config.Store.Persist = persist
		case "debug-ast":
			config.DebugJsonAST = debugAST
		case "debug-ast-text":
			config.DebugTxtAST = debugText
		}
	})
}

func configureLogWriter(logFile string) io.Writer {
	if logFile == "" {
		return os.Stderr
	}

	// Create parent directories if they don't exist
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("oris version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: oris [options] [filename]

Options:
  -config <path>       Configuration file. Default is $ORIS_HOME/oris.toml when present.
  -prelude <path>      TOML file whose [bindings] are defined before anything runs.
  -db-driver <name>    Store driver: sqlite3, mysql or postgres. Default is 'sqlite3'.
  -db-dsn <dsn>        Store data source name. No store is used when empty.
  -journal             Record every evaluated source and its outcome in the store.
  -persist             Restore REPL globals from the store and save them on exit.
  -debug-ast           Render the AST as a JSON file next to the source file.
  -debug-ast-text      Print the AST as indented text on stderr.
  -help                Display this help information and exit.
  -version             Display version information and exit.
  -log-level <level>   Set the log level: debug, info, warn, error, none. Default is 'none'.
  -log-file <path>     Specify a log file to write logs. Default is stderr.
  -log-format <format> Log record format: json or text. Default is 'json'.

Details:
oris evaluates a small expression language. Give a file to run it and print
its value, or start without one for the interactive REPL. REPL commands are
:env, :history, :runs and :quit.

Examples:
  oris                              Start the interactive REPL
  oris -log-level=debug prog.oris   Run a file with debug logging enabled
  oris -db-dsn=oris.db -journal     Start the REPL and journal every input

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// none
		return slog.LevelError + 4
	}
}
