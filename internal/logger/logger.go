// Package logger provides trace logging for the credential broker.
// When verbose mode is enabled via --verbose or GCM_TRACE, messages are
// printed to stderr so users can follow the authentication flow. Standard
// output belongs to git and is never written to.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	if v {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.ErrorLevel)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	return std.IsLevelEnabled(logrus.DebugLevel)
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// For returns a logger tagged with the component name.
func For(component string) logrus.FieldLogger {
	return std.WithField("component", component)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	std.Debugf(format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	std.Infof(format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	std.Warnf(format, args...)
}

// Error prints an error message. Errors are shown even when not verbose.
func Error(format string, args ...any) {
	std.Errorf(format, args...)
}

// sectionKey marks an entry the formatter renders as a section header.
const sectionKey = "section"

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	std.WithField(sectionKey, name).Debug()
}

// lineFormatter renders "[LEVEL] message key=value ...".
type lineFormatter struct{}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if name, ok := e.Data[sectionKey]; ok && len(e.Data) == 1 {
		fmt.Fprintf(&b, "\n=== %v ===\n", name)
		return b.Bytes(), nil
	}
	b.WriteString("[")
	b.WriteString(levelName(e.Level))
	b.WriteString("] ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}
