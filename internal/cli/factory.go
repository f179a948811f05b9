package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/actscript"
	"github.com/aretw0/actscript/internal/config"
	"github.com/aretw0/actscript/internal/logging"
	"github.com/aretw0/actscript/pkg/adapters/file"
	loamAdapter "github.com/aretw0/actscript/pkg/adapters/loam"
	"github.com/aretw0/actscript/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/actscript/pkg/adapters/redis"
	"github.com/aretw0/actscript/pkg/adapters/sqlite"
	"github.com/aretw0/actscript/pkg/observability"
	"github.com/aretw0/actscript/pkg/persistence/middleware"
	"github.com/aretw0/actscript/pkg/ports"
	"github.com/aretw0/actscript/pkg/session"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	// SessionDir overrides store.dir from the config file.
	SessionDir string
	// ScriptsDir overrides scripts from the config file.
	ScriptsDir string
	Debug      bool
	LogFile    string
	// Metrics attaches the Prometheus hooks to the engine.
	Metrics bool
}

// Runtime bundles what a command needs to work on scripts and sessions.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *actscript.Engine
	Sessions *session.Manager
	Metrics  *observability.Metrics

	closers []io.Closer
}

// Open loads the configuration and wires the engine and the session stack.
func Open(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.SessionDir != "" {
		cfg.Store.Dir = opts.SessionDir
	}
	if opts.ScriptsDir != "" {
		cfg.Scripts = opts.ScriptsDir
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}

	rt := &Runtime{Config: cfg}
	if rt.Logger, err = newLogger(cfg.Log, opts.Debug); err != nil {
		return nil, err
	}

	loader, err := newLoader(cfg)
	if err != nil {
		return nil, err
	}

	engineOpts := []actscript.Option{
		actscript.WithLoader(loader),
		actscript.WithParserConfig(cfg.Parser),
		actscript.WithLogger(rt.Logger),
	}
	if opts.Debug || cfg.Log.File != "" {
		engineOpts = append(engineOpts, actscript.WithLifecycleHooks(observability.LogHooks(rt.Logger)))
	}
	if opts.Metrics {
		rt.Metrics = observability.NewMetrics()
		engineOpts = append(engineOpts, actscript.WithLifecycleHooks(rt.Metrics.Hooks()))
	}
	if rt.Engine, err = actscript.New("", engineOpts...); err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}

	store, locker, closer, err := newStore(cfg, rt.Logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	sessionOpts := []session.Option{session.WithLogger(rt.Logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Store.LockTTL))
	}
	rt.Sessions = session.NewManager(store, sessionOpts...)
	return rt, nil
}

// Close releases store connections.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File != "" {
		var console io.Writer
		if debug {
			console = os.Stderr
		}
		return logging.NewFile(cfg.File, level, console), nil
	}
	// Without a log file only debug runs log, on stderr, so the
	// conversation on stdout stays clean.
	if debug {
		return logging.New(level), nil
	}
	return logging.NewNop(), nil
}

func newLoader(cfg *config.Config) (ports.ScriptLoader, error) {
	switch cfg.Loader {
	case config.LoaderLoam:
		return loamAdapter.Open(cfg.Scripts)
	default:
		return file.NewLoader(cfg.Scripts), nil
	}
}

// newStore builds the configured backend wrapped in the PII and encryption
// middlewares. PII masking runs first so the encrypted envelope never holds
// the raw values.
func newStore(cfg *config.Config, logger *slog.Logger) (ports.StateStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
		closer io.Closer
	)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendRedis:
		r := cfg.Store.Redis
		opts := []redisAdapter.Option{redisAdapter.WithTTL(r.TTL)}
		if r.Prefix != "" {
			opts = append(opts, redisAdapter.WithPrefix(r.Prefix))
		}
		rs := redisAdapter.New(r.Addr, r.Password, r.DB, opts...)
		prefix := r.Prefix
		if prefix == "" {
			prefix = redisAdapter.DefaultPrefix
		}
		store, locker, closer = rs, redisAdapter.NewLocker(rs.Client(), prefix), rs
	case config.BackendSQLite:
		ss, err := sqlite.Open(cfg.Store.SQLite.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		store, closer = ss, ss
	default:
		store = file.NewStore(cfg.Store.Dir)
	}

	var mws []middleware.Middleware
	if len(cfg.Security.PIIKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Security.PIIKeys)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid pii key pattern: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.Security.EncryptionKey != "" {
		enc, err := newEncryption(cfg.Security)
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

func newEncryption(sec config.SecurityConfig) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(sec.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	encCfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range sec.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback key: %w", err)
		}
		encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(encCfg)
}
