// Package logger provides component-scoped structured logging for botper.
//
// Call sites name the component that is logging ("webex", "dispatch",
// "reconcile", ...) and optionally attach a field map. Output goes through a
// process-wide zap core whose level can be changed at runtime.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "debug",
	INFO:  "info",
	WARN:  "warn",
	ERROR: "error",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	mu          sync.RWMutex
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base        = newLogger(os.Stderr, false)
	jsonMode    bool
)

func newLogger(w io.Writer, jsonFormat bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), atomicLevel))
}

// ParseLevel maps a config string to a LogLevel. The empty string is INFO.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Configure applies the logging section of the config.
func Configure(level string, jsonFormat bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	if jsonFormat != jsonMode {
		base = newLogger(os.Stderr, jsonFormat)
		jsonMode = jsonFormat
	}
	mu.Unlock()
	SetLevel(lvl)
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, jsonMode)
}

func SetLevel(level LogLevel) {
	atomicLevel.SetLevel(level.zapLevel())
}

func GetLevel() LogLevel {
	switch atomicLevel.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel:
		return ERROR
	default:
		return INFO
	}
}

// Sync flushes buffered entries. Safe to call at shutdown.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

func logAt(level LogLevel, component, msg string, fields map[string]any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ce := l.Check(level.zapLevel(), msg)
	if ce == nil {
		return
	}

	zf := make([]zap.Field, 0, len(fields)+1)
	if component != "" {
		zf = append(zf, zap.String("component", component))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	ce.Write(zf...)
}

func Debug(msg string) { logAt(DEBUG, "", msg, nil) }
func Info(msg string)  { logAt(INFO, "", msg, nil) }
func Warn(msg string)  { logAt(WARN, "", msg, nil) }
func Error(msg string) { logAt(ERROR, "", msg, nil) }

func DebugC(component, msg string) { logAt(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { logAt(INFO, component, msg, nil) }
func WarnC(component, msg string)  { logAt(WARN, component, msg, nil) }
func ErrorC(component, msg string) { logAt(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logAt(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { logAt(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { logAt(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { logAt(ERROR, component, msg, fields) }
