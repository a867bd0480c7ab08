// Package taxonomy parses taxonomy qna.yaml contribution files and validates
// them against the embedded versioned schema documents. Parsing never aborts
// on the first problem: every lint finding and every schema violation is
// reported so a contributor can fix a file in one pass.
package taxonomy

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/taxonomy/pkg/logger"
)

// MessageFormat selects how parse findings are reported.
type MessageFormat int

const (
	// FormatAuto picks FormatGitHub when both GITHUB_ACTIONS and
	// GITHUB_WORKFLOW are set in the environment, FormatStandard otherwise.
	FormatAuto MessageFormat = iota
	// FormatStandard prints plain messages starting with ERROR or WARN.
	FormatStandard
	// FormatGitHub prints GitHub Actions workflow commands.
	FormatGitHub
	// FormatLogging routes messages through the structured logger.
	FormatLogging
)

// ParseMessageFormat converts a format name to a MessageFormat.
// Names are case-insensitive.
func ParseMessageFormat(name string) (MessageFormat, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return FormatAuto, nil
	case "standard":
		return FormatStandard, nil
	case "github":
		return FormatGitHub, nil
	case "logging":
		return FormatLogging, nil
	default:
		return FormatAuto, errors.Errorf("unknown message format %q", name)
	}
}

// resolve collapses FormatAuto into a concrete format based on the
// environment.
func (f MessageFormat) resolve() MessageFormat {
	if f != FormatAuto {
		return f
	}
	_, actions := os.LookupEnv("GITHUB_ACTIONS")
	_, workflow := os.LookupEnv("GITHUB_WORKFLOW")
	if actions && workflow {
		return FormatGitHub
	}
	return FormatStandard
}

// Taxonomy holds one parsed qna.yaml file together with everything reported
// against it.
type Taxonomy struct {
	// Path is the taxonomy path of the file, starting at the taxonomy
	// folder (e.g. "compositional_skills/writing/qna.yaml"). When the file
	// is outside any known taxonomy folder this is the absolute path.
	Path string
	// RelPath is the file path relative to the working directory, or the
	// absolute path when the file lives elsewhere.
	RelPath string
	// Version is the schema version the file was validated against.
	Version int
	// Parsed is the decoded YAML mapping. Nil when the file could not be
	// decoded or was empty.
	Parsed map[string]any

	// Errors and Warnings count what was reported while parsing.
	Errors   int
	Warnings int

	format MessageFormat
	out    io.Writer
}

// Errorf reports an error against the file. Line and column are 1-based;
// yamlPath optionally names the offending item in dot notation.
func (t *Taxonomy) Errorf(line, col int, yamlPath, format string, args ...any) {
	t.Errors++
	t.emit(logrus.ErrorLevel, line, col, yamlPath, fmt.Sprintf(format, args...))
}

// Warnf reports a warning against the file.
func (t *Taxonomy) Warnf(line, col int, yamlPath, format string, args ...any) {
	t.Warnings++
	t.emit(logrus.WarnLevel, line, col, yamlPath, fmt.Sprintf(format, args...))
}

// Valid reports whether parsing found no errors. Warnings do not make a
// taxonomy invalid.
func (t *Taxonomy) Valid() bool {
	return t.Errors == 0
}

func (t *Taxonomy) emit(level logrus.Level, line, col int, yamlPath, message string) {
	switch t.format {
	case FormatGitHub:
		command := "error"
		if level == logrus.WarnLevel {
			command = "warning"
		}
		if yamlPath != "" {
			fmt.Fprintf(t.out, "::%s file=%s,line=%d,col=%d::%d:%d [%s] %s\n", command, t.RelPath, line, col, line, col, yamlPath, message)
		} else {
			fmt.Fprintf(t.out, "::%s file=%s,line=%d,col=%d::%d:%d %s\n", command, t.RelPath, line, col, line, col, message)
		}
	case FormatLogging:
		entry := logger.L.WithField("file", t.RelPath)
		if yamlPath != "" {
			entry.Logf(level, "%s:%d:%d [%s] %s", t.RelPath, line, col, yamlPath, message)
		} else {
			entry.Logf(level, "%s:%d:%d %s", t.RelPath, line, col, message)
		}
	default:
		prefix := "ERROR"
		if level == logrus.WarnLevel {
			prefix = "WARN"
		}
		if yamlPath != "" {
			fmt.Fprintf(t.out, "%s: %s:%d:%d [%s] %s\n", prefix, t.RelPath, line, col, yamlPath, message)
		} else {
			fmt.Fprintf(t.out, "%s: %s:%d:%d %s\n", prefix, t.RelPath, line, col, message)
		}
	}
}

// pointerToPath converts a JSON pointer ("/seed_examples/0/answer") into the
// dot notation used in messages (".seed_examples[0].answer"). The document
// root becomes ".".
func pointerToPath(pointer string) string {
	if pointer == "" {
		return "."
	}

	var b strings.Builder
	for _, segment := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if isIndex(segment) {
			fmt.Fprintf(&b, "[%s]", segment)
		} else {
			fmt.Fprintf(&b, ".%s", segment)
		}
	}
	return b.String()
}

func isIndex(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
