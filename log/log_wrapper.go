package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

var (
	lock       sync.RWMutex
	stdOut     io.Writer = os.Stderr
	stdLogger  log.Logger
	fileLogger log.Logger
	logFile    *os.File
	allow      = level.AllowInfo()
)

func init() {
	initStdLogger()
}

// default std logger is enabled
func EnableStdLogger(enable bool) {
	lock.Lock()
	defer lock.Unlock()

	if enable && stdLogger == nil {
		initStdLogger()
	}
	if !enable {
		stdLogger = nil
	}
}

// default file logger is disabled
func EnableFileLogger(enable bool, savePath string) error {
	lock.Lock()
	defer lock.Unlock()

	closeFileLogger()
	if !enable {
		return nil
	}
	return initFileLogger(savePath)
}

func EnableOnlyFileLogger(enable bool, savePath string) error {
	if err := EnableFileLogger(enable, savePath); err != nil {
		return err
	}
	if enable {
		EnableStdLogger(false)
	}
	return nil
}

func Debug(keyvals ...interface{}) {
	logAt(level.DebugValue(), keyvals)
}

func Info(keyvals ...interface{}) {
	logAt(level.InfoValue(), keyvals)
}

func Warn(keyvals ...interface{}) {
	logAt(level.WarnValue(), keyvals)
}

func Error(keyvals ...interface{}) {
	logAt(level.ErrorValue(), keyvals)
}

func SetToDebug() { setAllow(level.AllowDebug()) }

func SetToInfo() { setAllow(level.AllowInfo()) }

func SetToWarn() { setAllow(level.AllowWarn()) }

func SetToError() { setAllow(level.AllowError()) }

// SetLevel accepts debug, info, warn or error.
func SetLevel(name string) error {
	switch strings.ToLower(name) {
	case "debug":
		SetToDebug()
	case "info", "":
		SetToInfo()
	case "warn", "warning":
		SetToWarn()
	case "error":
		SetToError()
	default:
		return fmt.Errorf("unknown log level: %s", name)
	}
	return nil
}

// Component returns a logger for library code, tagged with the component
// name and routed to the enabled loggers.
func Component(name string) log.Logger {
	return log.With(log.LoggerFunc(forward), "component", name)
}

func logAt(value level.Value, keyvals []interface{}) {
	forward(append([]interface{}{level.Key(), value}, keyvals...)...)
}

func forward(keyvals ...interface{}) error {
	lock.RLock()
	defer lock.RUnlock()

	if stdLogger != nil {
		level.NewFilter(stdLogger, allow).Log(keyvals...)
	}
	if fileLogger != nil {
		level.NewFilter(fileLogger, allow).Log(keyvals...)
	}
	return nil
}

func setAllow(option level.Option) {
	lock.Lock()
	defer lock.Unlock()
	allow = option
}

func initStdLogger() {
	stdLogger = log.NewLogfmtLogger(log.NewSyncWriter(stdOut))
	stdLogger = log.With(stdLogger, "ts", log.DefaultTimestampUTC)
}

func initFileLogger(savePath string) error {
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(savePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = file
	fileLogger = log.NewLogfmtLogger(log.NewSyncWriter(file))
	fileLogger = log.With(fileLogger, "ts", log.DefaultTimestampUTC)
	return nil
}

func closeFileLogger() {
	fileLogger = nil
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
