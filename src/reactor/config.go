package reactor

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/reactor/src/clock"
	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mosaicnetworks/reactor/src/reactor"

// Config holds the settings of the dispatch loop and the effect executor.
type Config struct {
	// Workers bounds the number of offloaded tasks running at once.
	Workers int `mapstructure:"workers"`
	// DrainTimeout bounds the Draining state. When it expires the remaining
	// effects are cancelled. Zero waits for every effect.
	DrainTimeout time.Duration `mapstructure:"drain-timeout"`
	// HandlerBudget is how long a single HandleEvent call may take before it
	// is reported as an overrun. Zero disables the check.
	HandlerBudget time.Duration `mapstructure:"handler-budget"`
	// HaltOnOverrun turns overruns into contract violations.
	HaltOnOverrun bool `mapstructure:"halt-on-overrun"`

	Clock    clock.Clock
	Logger   *logrus.Logger
	Tracer   trace.Tracer
	Recorder *Recorder
}

// DefaultConfig returns the settings used by a production node.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.InfoLevel

	return &Config{
		Workers:       8,
		DrainTimeout:  5 * time.Second,
		HandlerBudget: 50 * time.Millisecond,
		Clock:         clock.Real(),
		Logger:        logger,
		Tracer:        otel.Tracer(tracerName),
	}
}

// TestConfig returns a Config driven by a manual clock that starts at the
// Unix epoch, logging through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Workers = 4
	config.DrainTimeout = 0
	config.HandlerBudget = 0
	config.Clock = clock.NewManual(time.Unix(0, 0))
	config.Logger = common.NewTestLogger(t)
	return config
}
