package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPrompt       = ">> "
	DefaultLogLevel     = "none"
	DefaultLogFormat    = "json"
	DefaultStoreDriver  = "sqlite3"
	ConfigFileName      = "oris.toml"
	HistoryFileName     = ".oris_history"
	OrisHomeEnvVariable = "ORIS_HOME"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`
	OrisHome  string `toml:"-"`

	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`

	// Prelude is a TOML file of bindings defined before anything runs.
	Prelude string `toml:"prelude"`

	DebugJsonAST bool `toml:"debug_json_ast"`
	DebugTxtAST  bool `toml:"debug_txt_ast"`

	Store StoreConfig `toml:"store"`
	Repl  ReplConfig  `toml:"repl"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	// Journal records every evaluated source unit with its outcome.
	Journal bool `toml:"journal"`
	// Persist saves REPL globals when the session ends.
	Persist bool `toml:"persist"`
}

func (s StoreConfig) Enabled() bool { return s.DSN != "" }

type ReplConfig struct {
	History string `toml:"history"`
	Prompt  string `toml:"prompt"`
}

// DefaultConfiguration is the configuration used when no file and no flags
// say otherwise. The history file lives in the oris home directory.
func DefaultConfiguration() Configuration {
	home := OrisHome()
	return Configuration{
		OrisHome:  home,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
		},
		Repl: ReplConfig{
			History: filepath.Join(home, HistoryFileName),
			Prompt:  DefaultPrompt,
		},
	}
}

// OrisHome is $ORIS_HOME, falling back to the user's home directory.
func OrisHome() string {
	if home := os.Getenv(OrisHomeEnvVariable); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// DefaultConfigPath is where the configuration file is looked up when no
// -config flag is given.
func DefaultConfigPath() string {
	return filepath.Join(OrisHome(), ConfigFileName)
}

// LoadConfiguration overlays the TOML file at path onto cfg. Keys the file
// leaves out keep their current value.
func LoadConfiguration(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := DecodeConfiguration(f, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// DecodeConfiguration overlays a TOML document onto cfg.
func DecodeConfiguration(r io.Reader, cfg *Configuration) error {
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return err
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown configuration key", slog.String("key", key.String()))
	}
	return nil
}
