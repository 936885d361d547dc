package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/terrafan/terrafan/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// DefaultTerraformVersion is installed when no version is selected.
const DefaultTerraformVersion = "1.7.5"

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := filepath.Join(homeDir(), "terrafan.db")
	app.Flag("db-path", "Path to the SQLite run history database file.").Envar("TERRAFAN_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	return c
}

// homeDir returns the application home directory.
func homeDir() string {
	return filepath.Join(homedir.HomeDir(), ".terrafan")
}

func defaultInstallPath() string {
	return filepath.Join(homeDir(), "bin")
}

func defaultPluginCacheDir() string {
	return filepath.Join(homeDir(), "plugin-cache")
}
