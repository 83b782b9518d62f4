// Package logger is the area-filtered log of the c64basic server and REPL.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/c64basic/pkg/configuration"
)

// LogLevel definiert die verschiedenen Log-Level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	return logLevelNames[l]
}

// LogArea is a subsystem that can be switched on with log_<area> in [Debug].
type LogArea string

const (
	AreaInterpreter LogArea = "interpreter"
	AreaStorage     LogArea = "storage"
	AreaWebSocket   LogArea = "websocket"
	AreaSession     LogArea = "session"
	AreaAuth        LogArea = "auth"
	AreaSecurity    LogArea = "security"
	AreaConsole     LogArea = "console"
	AreaTLS         LogArea = "tls"
	AreaConfig      LogArea = "config"
	AreaGeneral     LogArea = "general"
)

var allAreas = []LogArea{
	AreaInterpreter, AreaStorage, AreaWebSocket, AreaSession, AreaAuth,
	AreaSecurity, AreaConsole, AreaTLS, AreaConfig, AreaGeneral,
}

// Logger writes area-filtered entries to a rotating file.
type Logger struct {
	enabled       int32              // atomic bool
	level         int32              // atomic LogLevel
	areaEnabled   map[LogArea]*int32 // atomic bools per area
	out           io.Writer
	file          *os.File
	mutex         sync.Mutex
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize creates the global logger from the [Debug] section.
// Without Initialize every log call is a no-op.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		globalLogger, err = newLogger()
	})
	return err
}

func newLogger() (*Logger, error) {
	l := &Logger{areaEnabled: make(map[LogArea]*int32, len(allAreas))}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}
	l.loadConfig()
	if l.logPath == "" {
		l.out = os.Stderr
		return l, nil
	}
	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWriterLogger returns a logger writing to w with every area enabled.
// Used by tests and by the REPL when -v is given.
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	l := &Logger{areaEnabled: make(map[LogArea]*int32, len(allAreas)), out: w}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
		atomic.StoreInt32(l.areaEnabled[area], 1)
	}
	atomic.StoreInt32(&l.enabled, 1)
	atomic.StoreInt32(&l.level, int32(level))
	return l
}

// SetGlobal replaces the global logger. It returns the previous one.
func SetGlobal(l *Logger) *Logger {
	prev := globalLogger
	globalLogger = l
	return prev
}

func (l *Logger) loadConfig() {
	enabled := configuration.GetBool("Debug", "enable_debug_logging", false)
	atomic.StoreInt32(&l.enabled, boolToInt32(enabled))

	level := parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))
	atomic.StoreInt32(&l.level, int32(level))

	l.logPath = configuration.GetString("Debug", "log_file", "c64basic.log")
	l.maxSizeMB = int64(configuration.GetInt("Debug", "max_log_size_mb", 10))
	l.rotationCount = configuration.GetInt("Debug", "log_rotation_count", 3)

	for area, flag := range l.areaEnabled {
		on := configuration.GetBool("Debug", "log_"+string(area), area == AreaGeneral)
		atomic.StoreInt32(flag, boolToInt32(on))
	}
}

func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.out = file
	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotateLocked shifts c64basic.log to .1, .1 to .2 and so on. Caller holds the mutex.
func (l *Logger) rotateLocked() {
	if l.file == nil {
		return
	}
	l.file.Close()
	l.file = nil

	for i := l.rotationCount - 1; i >= 1; i-- {
		older := fmt.Sprintf("%s.%d", l.logPath, i+1)
		if i == l.rotationCount-1 {
			os.Remove(older)
		}
		os.Rename(fmt.Sprintf("%s.%d", l.logPath, i), older)
	}
	os.Rename(l.logPath, l.logPath+".1")

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.out = os.Stderr
		return
	}
	l.file = file
	l.out = file
	l.currentSize = 0
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, ok := l.areaEnabled[area]; ok {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if atomic.LoadInt32(&l.enabled) == 0 {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

// callerSkip reaches the code that called Debug, Info, ... or an area wrapper.
const callerSkip = 3

// writeLog formats one entry; skip is passed to runtime.Caller.
func (l *Logger) writeLog(skip int, level LogLevel, area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(skip)
	entry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		level,
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	if l.out != nil {
		n, err := io.WriteString(l.out, entry)
		if err == nil && l.file != nil {
			l.currentSize += int64(n)
			if l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotateLocked()
			}
		}
	}
	l.mutex.Unlock()

	// Warnungen zusätzlich auf stderr, solange in eine Datei geloggt wird
	if level >= WARN && l.file != nil {
		log.Printf("[%s] [%s] %s", level, strings.ToUpper(string(area)), message)
	}
}

func logAt(level LogLevel, area LogArea, format string, args ...interface{}) {
	if l := globalLogger; l != nil && l.shouldLog(level, area) {
		l.writeLog(callerSkip, level, area, format, args...)
	}
}

// Debug schreibt Debug-Logs
func Debug(area LogArea, format string, args ...interface{}) {
	logAt(DEBUG, area, format, args...)
}

// Info schreibt Info-Logs
func Info(area LogArea, format string, args ...interface{}) {
	logAt(INFO, area, format, args...)
}

// Warn schreibt Warning-Logs
func Warn(area LogArea, format string, args ...interface{}) {
	logAt(WARN, area, format, args...)
}

// Error schreibt Error-Logs
func Error(area LogArea, format string, args ...interface{}) {
	logAt(ERROR, area, format, args...)
}

// Fatal logs unconditionally and exits.
func Fatal(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.writeLog(callerSkip-1, FATAL, area, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// WebSocket Logging
func WebSocketDebug(format string, args ...interface{}) { logAt(DEBUG, AreaWebSocket, format, args...) }
func WebSocketInfo(format string, args ...interface{})  { logAt(INFO, AreaWebSocket, format, args...) }
func WebSocketWarn(format string, args ...interface{})  { logAt(WARN, AreaWebSocket, format, args...) }
func WebSocketError(format string, args ...interface{}) { logAt(ERROR, AreaWebSocket, format, args...) }

// Auth Logging
func AuthDebug(format string, args ...interface{}) { logAt(DEBUG, AreaAuth, format, args...) }
func AuthInfo(format string, args ...interface{})  { logAt(INFO, AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { logAt(WARN, AreaAuth, format, args...) }
func AuthError(format string, args ...interface{}) { logAt(ERROR, AreaAuth, format, args...) }

// Security Logging
func SecurityInfo(format string, args ...interface{}) { logAt(INFO, AreaSecurity, format, args...) }
func SecurityWarn(format string, args ...interface{}) { logAt(WARN, AreaSecurity, format, args...) }

// Storage Logging
func StorageDebug(format string, args ...interface{}) { logAt(DEBUG, AreaStorage, format, args...) }
func StorageInfo(format string, args ...interface{})  { logAt(INFO, AreaStorage, format, args...) }
func StorageError(format string, args ...interface{}) { logAt(ERROR, AreaStorage, format, args...) }

// Session Logging
func SessionDebug(format string, args ...interface{}) { logAt(DEBUG, AreaSession, format, args...) }
func SessionInfo(format string, args ...interface{})  { logAt(INFO, AreaSession, format, args...) }
func SessionWarn(format string, args ...interface{})  { logAt(WARN, AreaSession, format, args...) }

// ConfigInfo logs in the config area.
func ConfigInfo(format string, args ...interface{}) { logAt(INFO, AreaConfig, format, args...) }

// EnableArea aktiviert Logging für einen Bereich
func EnableArea(area LogArea) {
	if globalLogger != nil {
		if flag, ok := globalLogger.areaEnabled[area]; ok {
			atomic.StoreInt32(flag, 1)
		}
	}
}

// DisableArea deaktiviert Logging für einen Bereich
func DisableArea(area LogArea) {
	if globalLogger != nil {
		if flag, ok := globalLogger.areaEnabled[area]; ok {
			atomic.StoreInt32(flag, 0)
		}
	}
}

// ListAreas returns all known areas.
func ListAreas() []LogArea {
	return append([]LogArea(nil), allAreas...)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Close schließt das Logging-System
func Close() {
	if globalLogger == nil {
		return
	}
	globalLogger.mutex.Lock()
	defer globalLogger.mutex.Unlock()
	if globalLogger.file != nil {
		globalLogger.file.Close()
		globalLogger.file = nil
		globalLogger.out = nil
	}
}
