package erpc

import (
	"log/slog"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/jiangxiaosheng/eRPC/sm"
)

// Config carries the construction-time parameters recognized by New, with
// defaults suitable for tests and the loopback transport. Every field has an
// env tag so a deployment can override defaults without touching code,
// mirroring sessions/redishost.Config's envdecode usage.
type Config struct {
	// PhyPort selects the physical port index, 0..sm.MaxPhyPorts.
	PhyPort uint8 `env:"ERPC_PHY_PORT,default=0"`
	// NumaNode is an allocator affinity hint. New does not pass it to the
	// HugeAlloc, which the caller constructs; the in-repo pool allocator
	// takes its own numaNode argument, records it, and does not pin memory
	// (see DESIGN.md).
	NumaNode int `env:"ERPC_NUMA_NODE,default=0"`
	// TransportType is opaque to this package; it is only logged and
	// compared for diagnostics, since the concrete transport.Transport is
	// supplied directly to New.
	TransportType sm.TransportType `env:"ERPC_TRANSPORT_TYPE,default=0"`
	// MultiThreaded enables conditional locking on per-session slot
	// free-lists for background-thread callers. Locking in the allocator is
	// set when the caller constructs the HugeAlloc (pool.New's
	// multiThreaded argument), not by this field.
	MultiThreaded bool `env:"ERPC_MULTI_THREADED,default=false"`
	// SmTimeoutMS is the session-management retry deadline.
	SmTimeoutMS int `env:"ERPC_SM_TIMEOUT_MS,default=50"`
	// SlotsPerSession is the fixed per-session request window size.
	SlotsPerSession int `env:"ERPC_SLOTS_PER_SESSION,default=8"`
	// MaxSessionsPerEndpoint bounds the session table.
	MaxSessionsPerEndpoint int `env:"ERPC_MAX_SESSIONS_PER_ENDPOINT,default=1024"`
	// SecretBits is the number of low-order bits of a session secret that
	// are meaningful; kept configurable for tests that want short secrets,
	// but must not exceed sm.SecretBits in production use.
	SecretBits uint `env:"ERPC_SECRET_BITS,default=48"`
	// RetryBurstPerTick bounds how many SM retries retry.Queue.Fire will
	// re-emit in a single event-loop tick; 0 disables pacing.
	RetryBurstPerTick int `env:"ERPC_RETRY_BURST_PER_TICK,default=0"`
}

// smTimeout returns SmTimeoutMS as a time.Duration.
func (c Config) smTimeout() time.Duration {
	return time.Duration(c.SmTimeoutMS) * time.Millisecond
}

// DefaultConfig returns a Config with the same defaults envdecode would
// apply, for callers that construct an Rpc without reading the environment.
func DefaultConfig() Config {
	var cfg Config
	_ = envdecode.Decode(&cfg)
	return cfg
}

// ConfigFromEnv decodes a Config from the process environment using the
// env tags above, falling back to their defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Option configures an Rpc at construction, layered over Config exactly
// like streaminghttp.Option layers over newConfig.
type Option func(*rpcOptions)

type rpcOptions struct {
	logger  *slog.Logger
	metrics MetricsSink
	config  Config
}

// WithLogger sets the *slog.Logger used for all of this Rpc's structured
// logging. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *rpcOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics installs a MetricsSink. Defaults to a no-op sink.
func WithMetrics(m MetricsSink) Option {
	return func(o *rpcOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithConfig overrides the Config New would otherwise derive from
// DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(o *rpcOptions) { o.config = cfg }
}
