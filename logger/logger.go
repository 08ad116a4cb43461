package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	r "gopkg.in/rethinkdb/rethinkdb-go.v6"
)

type CustomLogger struct {
	*log.Logger
}

var logLevelMapping = map[string]log.Level{
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

// RunnerLogger is used by every package of the runner.
// Until SetupLogging is called it writes text entries to stderr.
var RunnerLogger = &CustomLogger{Logger: log.New()}

func init() {
	RunnerLogger.SetOutput(os.Stderr)
	RunnerLogger.SetLevel(log.InfoLevel)
}

// ValidLevel reports whether level can be passed to SetupLogging
func ValidLevel(level string) bool {
	_, ok := logLevelMapping[level]
	return ok
}

// SetupLogging switches RunnerLogger to JSON entries written to stderr and,
// when logFilePath is not empty, appended to that file as well.
// Stdout is left to the test output.
func SetupLogging(level, logFilePath string) error {
	logger, err := CreateCustomLogger(level, logFilePath, os.Stderr)
	if err != nil {
		return err
	}
	RunnerLogger = logger
	return nil
}

func CreateCustomLogger(level, logFilePath string, out io.Writer) (*CustomLogger, error) {
	lvl, ok := logLevelMapping[level]
	if !ok {
		return nil, fmt.Errorf("unknown log level `%s`", level)
	}

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetLevel(lvl)

	writers := []io.Writer{}
	if out != nil {
		writers = append(writers, out)
	}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("Could not create log folder - %w", err)
		}
		logFile, err := os.OpenFile(logFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("Could not set log output - %w", err)
		}
		writers = append(writers, logFile)
	}

	if len(writers) == 1 {
		logger.SetOutput(writers[0])
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return &CustomLogger{Logger: logger}, nil
}

func (l CustomLogger) LogDebug(eventName string, message string) {
	l.WithFields(log.Fields{
		"event": eventName,
	}).Debug(message)
}

func (l CustomLogger) LogInfo(eventName string, message string) {
	l.WithFields(log.Fields{
		"event": eventName,
	}).Info(message)
}

func (l CustomLogger) LogWarn(eventName string, message string) {
	l.WithFields(log.Fields{
		"event": eventName,
	}).Warn(message)
}

func (l CustomLogger) LogError(eventName string, message string) {
	l.WithFields(log.Fields{
		"event": eventName,
	}).Error(message)
}

func (l CustomLogger) LogFatal(eventName string, message string) {
	l.WithFields(log.Fields{
		"event": eventName,
	}).Fatal(message)
}

// RethinkDBHook stores every log entry in a RethinkDB table
type RethinkDBHook struct {
	Session r.QueryExecutor
	Table   string
	Host    string
	levels  []log.Level
}

func NewRethinkDBHook(session r.QueryExecutor, table, host string, minLevel log.Level) *RethinkDBHook {
	var levels []log.Level
	for _, lvl := range log.AllLevels {
		if lvl <= minLevel {
			levels = append(levels, lvl)
		}
	}
	return &RethinkDBHook{Session: session, Table: table, Host: host, levels: levels}
}

type logEntry struct {
	Level     string `rethinkdb:"level"`
	Message   string `rethinkdb:"message"`
	Timestamp int64  `rethinkdb:"timestamp"`
	Host      string `rethinkdb:"host"`
	EventName string `rethinkdb:"event"`
}

func (hook *RethinkDBHook) Fire(entry *log.Entry) error {
	eventName, _ := entry.Data["event"].(string)

	document := logEntry{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Timestamp: time.Now().UnixMilli(),
		Host:      hook.Host,
		EventName: eventName,
	}

	err := r.Table(hook.Table).Insert(document).Exec(hook.Session)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed inserting runner log through hook - "+err.Error())
	}
	return err
}

// Levels returns the log levels at which the hook should fire
func (hook *RethinkDBHook) Levels() []log.Level {
	return hook.levels
}
