// Package logger provides the non-blocking, level-filtered logger used
// across the filter pipeline: StreamDecode's Strict-mode warning, the SSH
// device's agent-key debug lines and filterdemo's errors go through here
// rather than through ad-hoc fmt.Println calls. Filter creation, recycling
// and decode FSM transitions are not logged.
package logger

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mimecast/filterpipe/internal/constants"
)

const (
	infoStr  string = "INFO"
	warnStr  string = "WARN"
	errorStr string = "ERROR"
	fatalStr string = "FATAL"
	debugStr string = "DEBUG"
	traceStr string = "TRACE"
)

// Mode configures which severities are emitted and where.
type Mode struct {
	// Debug enables Debug-level messages.
	Debug bool
	// Trace enables Trace-level messages (and implies Debug).
	Trace bool
	// Quiet suppresses everything except Error/Fatal.
	Quiet bool
	// Nothing suppresses all output, including Error/Fatal.
	Nothing bool
}

var (
	mode         Mode
	mutex        sync.Mutex
	stdoutWriter = bufio.NewWriter(os.Stdout)
	bufCh        chan string
	startOnce    sync.Once
)

// Start begins the non-blocking stdout writer goroutine. Safe to call more
// than once: every call sets the mode, only the first starts the writer.
func Start(m Mode) {
	mode = m
	if mode.Trace {
		mode.Debug = true
	}
	startOnce.Do(func() {
		bufCh = make(chan string, runtime.NumCPU()*constants.LoggerBufferChannelMultiplier)
		go writeLoop()
	})
}

func writeLoop() {
	for message := range bufCh {
		mutex.Lock()
		stdoutWriter.WriteString(message)
		stdoutWriter.Flush()
		mutex.Unlock()
	}
}

func log(severity string, args []interface{}) string {
	if mode.Nothing {
		return ""
	}
	if mode.Quiet && severity != errorStr && severity != fatalStr {
		return ""
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, severity)
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			parts = append(parts, v)
		case error:
			parts = append(parts, v.Error())
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}

	message := strings.Join(parts, "|") + "\n"
	if bufCh != nil {
		select {
		case bufCh <- message:
		default:
			// Channel full: degrade to synchronous write rather than block
			// the interpreter thread (single-threaded cooperative model,
			// §5 — logging must never be the thing that stalls a filter).
			mutex.Lock()
			stdoutWriter.WriteString(message)
			stdoutWriter.Flush()
			mutex.Unlock()
		}
	} else {
		mutex.Lock()
		stdoutWriter.WriteString(message)
		stdoutWriter.Flush()
		mutex.Unlock()
	}
	return message
}

// Info logs at INFO level.
func Info(args ...interface{}) string { return log(infoStr, args) }

// Warn logs at WARN level.
func Warn(args ...interface{}) string { return log(warnStr, args) }

// Error logs at ERROR level.
func Error(args ...interface{}) string { return log(errorStr, args) }

// Debug logs at DEBUG level, a no-op unless Mode.Debug is set.
func Debug(args ...interface{}) string {
	if !mode.Debug {
		return ""
	}
	return log(debugStr, args)
}

// Trace logs at TRACE level, a no-op unless Mode.Trace is set.
func Trace(args ...interface{}) string {
	if !mode.Trace {
		return ""
	}
	return log(traceStr, args)
}

// FatalExit logs at FATAL level, flushes and exits the process.
func FatalExit(args ...interface{}) {
	log(fatalStr, args)
	Flush()
	os.Exit(3)
}

// Flush drains any buffered stdout output synchronously, including
// messages still queued for the writer goroutine.
func Flush() {
	mutex.Lock()
	defer mutex.Unlock()
	for {
		select {
		case message := <-bufCh:
			stdoutWriter.WriteString(message)
		default:
			stdoutWriter.Flush()
			return
		}
	}
}
