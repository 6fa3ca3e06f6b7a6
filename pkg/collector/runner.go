package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrCollectorFailed is returned when the collector process cannot be run
// or exits unsuccessfully.
var ErrCollectorFailed = errors.New("collector: process failed")

// Config describes how to run the collector process.
type Config struct {
	Enabled bool     `json:"enabled"`
	Command string   `json:"command"`
	Args    []string `json:"args"`

	// TimeoutSec bounds a single run of the process.
	TimeoutSec int `json:"timeout_sec"`

	// DefaultCooldownSec is used when the process does not report a cooldown,
	// or fails.
	DefaultCooldownSec int `json:"default_cooldown_sec"`

	// MinCooldownSec is the shortest wait between two runs.
	MinCooldownSec int `json:"min_cooldown_sec"`

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32 `json:"failure_threshold"`

	// OpenTimeoutSec is how long the breaker stays open before trying again.
	OpenTimeoutSec int `json:"open_timeout_sec"`
}

// DefaultConfig returns the stock collector settings.
func DefaultConfig() *Config {
	return &Config{
		Enabled:            false,
		Command:            "python2.7",
		Args:               []string{"../twitch/twitch.py", "-f", "60"},
		TimeoutSec:         120,
		DefaultCooldownSec: 300,
		MinCooldownSec:     10,
		FailureThreshold:   3,
		OpenTimeoutSec:     600,
	}
}

// ExecFunc runs a command and returns its standard output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner runs the collector process behind a circuit breaker.
type Runner struct {
	cfg     *Config
	exec    ExecFunc
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecFunc replaces the function used to start the process.
func WithExecFunc(fn ExecFunc) RunnerOption {
	return func(r *Runner) { r.exec = fn }
}

// WithLogger sets the logger used for breaker state changes and failures.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner returns a Runner for cfg.
func NewRunner(cfg *Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		exec:   runCommand,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	r.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "collector",
		Timeout: time.Duration(cfg.OpenTimeoutSec) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("Collector circuit breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return r
}

// State returns the breaker state ("closed", "half-open" or "open").
func (r *Runner) State() string {
	return r.breaker.State().String()
}

// DefaultCooldown returns the configured fallback cooldown.
func (r *Runner) DefaultCooldown() time.Duration {
	return time.Duration(r.cfg.DefaultCooldownSec) * time.Second
}

// Run starts the collector and returns its raw output. While the breaker is
// open Run fails immediately with gobreaker.ErrOpenState.
func (r *Runner) Run(ctx context.Context) ([]byte, error) {
	return r.breaker.Execute(func() ([]byte, error) {
		runCtx := ctx
		if r.cfg.TimeoutSec > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutSec)*time.Second)
			defer cancel()
		}
		out, err := r.exec(runCtx, r.cfg.Command, r.cfg.Args...)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Collect runs the collector and decodes its output. A response with a
// non-zero status is returned together with an error wrapping
// ErrCollectorFailed.
func (r *Runner) Collect(ctx context.Context) (*Response, error) {
	out, err := r.Run(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := ParseResponse(out, r.DefaultCooldown())
	if err != nil {
		return nil, err
	}
	if resp.Kind == KindError {
		return resp, fmt.Errorf("%w: status %d: %s", ErrCollectorFailed, resp.Status, resp.Message)
	}
	return resp, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCollectorFailed, name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
