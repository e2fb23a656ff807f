package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mosaicnetworks/reactor/src/clock"
	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/mosaicnetworks/reactor/src/reactor"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultServiceAddr       = "127.0.0.1:8000"
	DefaultChainName         = "reactor"
	DefaultStore             = false
	DefaultHeartbeatInterval = 1000 * time.Millisecond
	DefaultHeartbeatJitter   = 100 * time.Millisecond
	DefaultGossipFanOut      = 3
	DefaultGossipTimeout     = 2000 * time.Millisecond
	DefaultRequestTimeout    = 5000 * time.Millisecond
	DefaultWorkers           = 8
	DefaultDrainTimeout      = 5000 * time.Millisecond
	DefaultHandlerBudget     = 50 * time.Millisecond
)

// Config contains all the configuration properties of a reactor node.
type Config struct {
	// DataDir is the top-level directory containing the node's configuration
	// and data
	DataDir string `mapstructure:"datadir" env:"REACTOR_DATADIR"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log" env:"REACTOR_LOG"`

	// LogFile, when set, receives a copy of every log line.
	LogFile string `mapstructure:"log-file" env:"REACTOR_LOG_FILE"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service" env:"REACTOR_NO_SERVICE"`

	// ServiceAddr is the address:port of the HTTP service. Peers also post
	// gossip to it.
	ServiceAddr string `mapstructure:"service-listen" env:"REACTOR_SERVICE_LISTEN"`

	// RequestTimeout bounds how long the HTTP service waits for an answer from
	// the reactor.
	RequestTimeout time.Duration `mapstructure:"request-timeout" env:"REACTOR_REQUEST_TIMEOUT"`

	// ChainName is the chain deploys must target to be accepted.
	ChainName string `mapstructure:"chain" env:"REACTOR_CHAIN"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store" env:"REACTOR_STORE"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db" env:"REACTOR_DB"`

	// Seed seeds the reactor's random number generator. Zero draws a seed
	// from the operating system.
	Seed uint64 `mapstructure:"seed" env:"REACTOR_SEED"`

	// HeartbeatInterval is the period of the heartbeat that drives gossip.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat" env:"REACTOR_HEARTBEAT"`

	// HeartbeatJitter is the maximum random delay added to each heartbeat.
	HeartbeatJitter time.Duration `mapstructure:"heartbeat-jitter" env:"REACTOR_HEARTBEAT_JITTER"`

	// Peers lists the service addresses of the nodes we gossip deploys to.
	Peers []string `mapstructure:"peers" env:"REACTOR_PEERS" envSeparator:","`

	// GossipFanOut is the number of peers contacted on every heartbeat.
	GossipFanOut int `mapstructure:"fan-out" env:"REACTOR_FAN_OUT"`

	// GossipTimeout bounds a gossip round.
	GossipTimeout time.Duration `mapstructure:"gossip-timeout" env:"REACTOR_GOSSIP_TIMEOUT"`

	// Workers bounds the number of offloaded tasks running at once.
	Workers int `mapstructure:"workers" env:"REACTOR_WORKERS"`

	// DrainTimeout bounds the time spent finishing in-flight work on
	// shutdown.
	DrainTimeout time.Duration `mapstructure:"drain-timeout" env:"REACTOR_DRAIN_TIMEOUT"`

	// HandlerBudget is how long a component may spend handling one event
	// before a warning is logged.
	HandlerBudget time.Duration `mapstructure:"handler-budget" env:"REACTOR_HANDLER_BUDGET"`

	// HaltOnOverrun stops the node when a component exceeds HandlerBudget.
	HaltOnOverrun bool `mapstructure:"halt-on-overrun" env:"REACTOR_HALT_ON_OVERRUN"`

	// OTLPEndpoint is the host:port of an OTLP/HTTP trace collector. Tracing
	// is disabled when empty.
	OTLPEndpoint string `mapstructure:"otlp-endpoint" env:"REACTOR_OTLP_ENDPOINT"`

	// Clock drives timers. Tests replace it with a manual clock.
	Clock clock.Clock `mapstructure:"-"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		ServiceAddr:       DefaultServiceAddr,
		RequestTimeout:    DefaultRequestTimeout,
		ChainName:         DefaultChainName,
		Store:             DefaultStore,
		DatabaseDir:       DefaultDatabaseDir(),
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatJitter:   DefaultHeartbeatJitter,
		GossipFanOut:      DefaultGossipFanOut,
		GossipTimeout:     DefaultGossipTimeout,
		Workers:           DefaultWorkers,
		DrainTimeout:      DefaultDrainTimeout,
		HandlerBudget:     DefaultHandlerBudget,
		Clock:             clock.Real(),
	}

	return config
}

// NewTestConfig returns a config object with default values, a manual clock
// starting at the Unix epoch, and a special logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.DatabaseDir = filepath.Join(config.DataDir, DefaultBadgerFile)
	config.NoService = true
	config.Seed = 1
	config.DrainTimeout = 0
	config.HandlerBudget = 0
	config.Clock = clock.NewManual(time.Unix(0, 0))
	config.logger = common.NewTestLogger(t)
	config.logger.Level = level
	return config
}

// ApplyEnv overrides the configuration with any REACTOR_* environment
// variables that are set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// ReactorConfig returns the settings of the dispatch loop.
func (c *Config) ReactorConfig() *reactor.Config {
	conf := reactor.DefaultConfig()
	conf.Workers = c.Workers
	conf.DrainTimeout = c.DrainTimeout
	conf.HandlerBudget = c.HandlerBudget
	conf.HaltOnOverrun = c.HaltOnOverrun
	conf.Logger = c.Logger().Logger
	if c.Clock != nil {
		conf.Clock = c.Clock
	}
	return conf
}

// Logger returns a formatted logrus Entry, with prefix set to "reactor". When
// LogFile is set, every line is also written there.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				pathMap[level] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "reactor")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Reactor")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Reactor")
		} else {
			return filepath.Join(home, ".reactor")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
