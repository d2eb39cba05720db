// Package debug provides cheap LOCKIT_DEBUG-gated stderr tracing for hot
// paths where structured logging would be too heavy.
package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("LOCKIT_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

// Enabled reports whether debug tracing is on, via env or SetVerbose.
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// Logf writes a trace line to stderr when debugging is on.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Printf writes to stdout when debugging is on.
func Printf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Printf(format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled. Use this for
// informational CLI output that --quiet should suppress.
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}
