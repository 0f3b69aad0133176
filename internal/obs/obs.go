// Package obs owns the suite's named loggers.
//
// A Registry hands out one zap logger per component name. The first request for
// a name attaches exactly two outputs, an append-mode file under the log
// directory and the console, both using the shared
// "time | LEVEL | name | message" layout. Later requests return the same
// logger, so lines are never duplicated.
package obs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileName is the shared append-only log file inside the log directory.
const LogFileName = "automation.log"

const timeLayout = "2006-01-02 15:04:05"

// Registry is a set of named loggers sharing one log file and one console.
type Registry struct {
	mu      sync.Mutex
	dir     string
	level   zapcore.Level
	console zapcore.WriteSyncer
	file    *os.File
	fileWS  *fileSink
	fileErr error
	loggers map[string]*namedLogger
}

// fileSink drops writes once detached so loggers outliving Close stay quiet.
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return len(p), nil
	}
	return s.f.Write(p)
}

func (s *fileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Sync()
}

func (s *fileSink) detach() {
	s.mu.Lock()
	s.f = nil
	s.mu.Unlock()
}

type namedLogger struct {
	logger   *zap.Logger
	handlers int
}

// Option configures a Registry.
type Option func(*Registry)

// WithConsole redirects the console output (stderr by default).
func WithConsole(w io.Writer) Option {
	return func(r *Registry) {
		r.console = zapcore.Lock(zapcore.AddSync(w))
	}
}

// WithLevel sets the minimum level for both outputs.
func WithLevel(level zapcore.Level) Option {
	return func(r *Registry) {
		r.level = level
	}
}

// NewRegistry creates a registry writing to dir/automation.log. Nothing touches
// the filesystem until the first logger is requested.
func NewRegistry(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:     dir,
		level:   zapcore.InfoLevel,
		console: zapcore.Lock(os.Stderr),
		loggers: make(map[string]*namedLogger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Dir returns the log directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Path returns the shared log file path.
func (r *Registry) Path() string {
	return filepath.Join(r.dir, LogFileName)
}

// Init creates the log directory and opens the log file. It is safe to call
// repeatedly; callers that want to fail fast on an unwritable directory call it
// before handing the registry out.
func (r *Registry) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked()
}

func (r *Registry) openLocked() error {
	if r.fileWS != nil {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", r.dir, err)
	}
	f, err := os.OpenFile(r.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	r.file = f
	r.fileWS = &fileSink{f: f}
	return nil
}

// Get returns the logger for name, configuring it on first use.
func (r *Registry) Get(name string) *zap.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.loggers[name]; ok {
		return existing.logger
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(enc, r.console, r.level)}

	if err := r.openLocked(); err != nil {
		if r.fileErr == nil {
			r.fileErr = err
		}
	} else {
		cores = append([]zapcore.Core{zapcore.NewCore(enc.Clone(), r.fileWS, r.level)}, cores...)
	}

	logger := zap.New(zapcore.NewTee(cores...)).Named(name)
	r.loggers[name] = &namedLogger{logger: logger, handlers: len(cores)}
	if r.fileErr != nil && len(cores) == 1 {
		logger.Warn("file logging disabled", zap.Error(r.fileErr))
	}
	return logger
}

// HandlerCount reports how many outputs are attached to the named logger, or
// zero if the name was never requested.
func (r *Registry) HandlerCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.loggers[name]; ok {
		return existing.handlers
	}
	return 0
}

// Close flushes and closes the log file. Loggers handed out earlier keep
// writing to the console; their file output is discarded.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loggers {
		_ = l.logger.Sync()
	}
	if r.file == nil {
		return nil
	}
	r.fileWS.detach()
	err := r.file.Close()
	r.file = nil
	r.fileWS = nil
	r.loggers = make(map[string]*namedLogger)
	return err
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " | ",
	}
}

var (
	defaultMu       sync.RWMutex
	defaultRegistry *Registry
)

// SetDefault installs the process-wide registry.
func SetDefault(r *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = r
}

// Default returns the process-wide registry, creating one under ./logs on first use.
func Default() *Registry {
	defaultMu.RLock()
	r := defaultRegistry
	defaultMu.RUnlock()
	if r != nil {
		return r
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry("logs")
	}
	return defaultRegistry
}

// Pkg returns a logger from the default registry tagged with a component name.
func Pkg(name string) *zap.Logger {
	return Default().Get(name)
}
