// Package logger provides leveled console logging for run execution.
// Implementations are thread-safe. Output lines carry [HH:MM:SS] timestamps
// so interleaved parallel runs stay attributable.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	levelTrace = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

// ConsoleLogger writes leveled, timestamped messages to a writer. A nil
// writer discards everything.
type ConsoleLogger struct {
	writer      io.Writer
	level       int
	mu          sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a logger at the given level (trace, debug, info,
// warn, error; empty or unknown defaults to info). Color is enabled only for
// stdout/stderr TTYs and respects NO_COLOR via the color package.
func NewConsoleLogger(w io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		level:       parseLevel(level),
		colorOutput: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

var levelColors = map[string]*color.Color{
	"WARN":  color.New(color.FgYellow),
	"ERROR": color.New(color.FgRed, color.Bold),
}

func (cl *ConsoleLogger) log(level int, label, message string) {
	if cl.writer == nil || level < cl.level {
		return
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	tag := fmt.Sprintf("[%s]", label)
	if cl.colorOutput {
		if c, ok := levelColors[label]; ok {
			tag = c.Sprint(tag)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] %s %s\n", time.Now().Format("15:04:05"), tag, message)
}

// LogTrace logs at trace level (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) { cl.log(levelTrace, "TRACE", message) }

// LogDebug logs at debug level.
func (cl *ConsoleLogger) LogDebug(message string) { cl.log(levelDebug, "DEBUG", message) }

// LogInfo logs at info level.
func (cl *ConsoleLogger) LogInfo(message string) { cl.log(levelInfo, "INFO", message) }

// LogWarn logs at warn level.
func (cl *ConsoleLogger) LogWarn(message string) { cl.log(levelWarn, "WARN", message) }

// LogError logs at error level.
func (cl *ConsoleLogger) LogError(message string) { cl.log(levelError, "ERROR", message) }
