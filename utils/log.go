package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions controls where and how verbosely the global logger writes.
type LogOptions struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// CustomFormatter adds caller, pid and goroutine id to every JSON entry.
type CustomFormatter struct {
	logrus.JSONFormatter
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if _, ok := entry.Data["file"]; !ok {
		if pc, file, line, ok := runtime.Caller(8); ok {
			funcName := runtime.FuncForPC(pc).Name()
			entry.Data["file"] = filepath.Base(file)
			entry.Data["line"] = line
			entry.Data["func"] = filepath.Base(funcName)
		}
	}

	entry.Data["@timestamp"] = entry.Time.Format(time.RFC3339)
	entry.Data["pid"] = os.Getpid()
	entry.Data["goroutine_id"] = getGoroutineID()

	return f.JSONFormatter.Format(entry)
}

// log is the global logger instance, guarded by logMu.
var (
	log   *logrus.Logger
	logMu sync.RWMutex
	once  sync.Once
)

func newLogger(opts LogOptions) (*logrus.Logger, error) {
	l := logrus.New()

	l.SetFormatter(&CustomFormatter{
		JSONFormatter: logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		},
	})

	var out io.Writer = os.Stdout
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   opts.Compress,
		})
	}
	l.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	l.SetLevel(level)
	l.SetReportCaller(true)

	return l, nil
}

// InitLogger replaces the global logger. Loggers already handed out by
// GetLogger keep their old settings.
func InitLogger(opts LogOptions) error {
	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	once.Do(func() {})
	logMu.Lock()
	log = l
	logMu.Unlock()
	return nil
}

// GetLogger returns the singleton logger instance, writing to stdout at info
// level unless InitLogger ran first.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		l, err := newLogger(LogOptions{})
		if err != nil {
			panic(fmt.Sprintf("failed to init logger: %v", err))
		}
		logMu.Lock()
		log = l
		logMu.Unlock()
	})
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// getGoroutineID parses the current goroutine id out of the stack header.
func getGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	var id uint64
	fmt.Sscanf(string(b), "goroutine %d", &id)
	return id
}
