package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/hotswarm/schema"
)

// Color variables for console output.
var (
	HighColor     = color.New(color.FgRed, color.Bold)     // HighColor represents standard danger.
	MediumColor   = color.New(color.FgYellow)              // MediumColor represents standard caution, not bold.
	LowColor      = color.New(color.FgCyan)                // LowColor represents informational / low-priority signal.
	SuccessColor  = color.New(color.FgGreen)               // SuccessColor represents finished work.
	ActiveColor   = color.New(color.FgMagenta)             // ActiveColor represents work in flight.
	ProblemColor  = color.New(color.FgRed)                 // ProblemColor represents a worker needing attention.
	HeadlineColor = color.New(color.FgHiWhite, color.Bold) // HeadlineColor highlights section titles.
)

// ErrInvalidIdentifier is returned when a value is unsafe to pass to git.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// identifierPattern restricts item ids, branch names and paths passed to git.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// ValidateIdentifier rejects values that could be misread by the git command line.
// Allowed: letters, digits, '.', '_', '-', '/'. Disallowed: a leading '-' or '/', "..", "//" and a trailing '.lock'.
func ValidateIdentifier(kind, value string) error {
	switch {
	case value == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalidIdentifier, kind)
	case !identifierPattern.MatchString(value):
		return fmt.Errorf("%w: %s %q contains characters outside [A-Za-z0-9._/-]", ErrInvalidIdentifier, kind, value)
	case strings.HasPrefix(value, "-"), strings.HasPrefix(value, "/"):
		return fmt.Errorf("%w: %s %q must not start with '-' or '/'", ErrInvalidIdentifier, kind, value)
	case strings.Contains(value, ".."), strings.Contains(value, "//"):
		return fmt.Errorf("%w: %s %q must not contain '..' or '//'", ErrInvalidIdentifier, kind, value)
	case strings.HasSuffix(value, ".lock"), strings.HasSuffix(value, "/"), strings.HasSuffix(value, "."):
		return fmt.Errorf("%w: %s %q has an invalid suffix", ErrInvalidIdentifier, kind, value)
	}
	return nil
}

// GetRiskLabel returns a colored label for a risk level.
func GetRiskLabel(risk schema.RiskLevel) string {
	text := string(risk)
	switch risk {
	case schema.RiskHigh:
		return HighColor.Sprint(text)
	case schema.RiskMedium:
		return MediumColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// GetStatusLabel returns a colored label for a worker status.
func GetStatusLabel(status schema.WorkerStatus) string {
	text := string(status)
	switch status {
	case schema.WorkerCompleted:
		return SuccessColor.Sprint(text)
	case schema.WorkerPlanning, schema.WorkerExecuting:
		return ActiveColor.Sprint(text)
	case schema.WorkerFailed, schema.WorkerTimeout:
		return ProblemColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as prefixes. Patterns starting with '.' are treated as suffix (extension) matches.
// A user can provide patterns like "vendor/", "node_modules/", "*.min.js".
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
