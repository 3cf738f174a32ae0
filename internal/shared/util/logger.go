package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiWhite   = "\033[37m"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Logger is the leveled console logger both services share. Lines carry a
// timestamp, level, and the emitting component; HTTP access lines carry the
// request id so a request can be followed across log output.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
}

func New() *Logger {
	return &Logger{out: os.Stdout}
}

func NewWithOutput(w io.Writer) *Logger {
	return &Logger{out: w}
}

func (l *Logger) Info(instance, message string) {
	l.emit(ansiGreen, "INFO", instance, message)
}

func (l *Logger) Warn(instance, message string) {
	l.emit(ansiYellow, "WARN", instance, message)
}

func (l *Logger) Error(instance string, err error) {
	l.emit(ansiRed, "ERROR", instance, err.Error())
}

func (l *Logger) Fatal(instance string, err error) {
	l.emit(ansiRed, "FATAL", instance, err.Error())
	os.Exit(1)
}

func (l *Logger) OK(instance, message string) {
	l.emit(ansiGreen, "OK", instance, message)
}

func (l *Logger) emit(color, level, instance, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s%-5s%s | %-28s | %s\n",
		time.Now().Format(timeLayout), color, level, ansiReset, instance, message)
}

// HTTP writes one access line per handled request.
func (l *Logger) HTTP(status int, elapsed time.Duration, requestID, method, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s |%s| %7s | %-36s | %s %s\n",
		time.Now().Format(timeLayout), paintStatus(status), elapsed, requestID, paintMethod(method), path)
}

func paintMethod(method string) string {
	var color string
	switch method {
	case "GET":
		color = ansiBlue
	case "POST":
		color = ansiGreen
	case "PUT":
		color = ansiMagenta
	case "DELETE":
		color = ansiRed
	case "OPTIONS":
		color = ansiYellow
	default:
		color = ansiWhite
	}
	return fmt.Sprintf("%s%-6s%s", color, method, ansiReset)
}

func paintStatus(code int) string {
	var color string
	switch {
	case code >= 200 && code < 300:
		color = ansiGreen
	case code >= 300 && code < 400:
		color = ansiCyan
	case code >= 400 && code < 500:
		color = ansiYellow
	default:
		color = ansiRed
	}
	return fmt.Sprintf("%s%d%s", color, code, ansiReset)
}
