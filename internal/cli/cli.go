// Package cli parses command-line arguments into an app configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/camlaunchgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("camlaunch", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
camlaunch - composes and starts a camera processing pipeline.

The pipeline (camera -> decoder -> crop -> rectify -> relay) is configured
through environment variables (CAMERA_NAME, CONFIG_DIR, PARAM_FILENAME,
RECTIFY, ...); see the README for the full set. Flags below override the
corresponding environment values for interactive use.

Usage:
  camlaunch [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	profileFlag := flagSet.String("profile", "", "Path to an HCL launch profile (overrides LAUNCH_PROFILE).")
	configDirFlag := flagSet.String("config-dir", "", "Base directory for default parameter files (overrides CONFIG_DIR).")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the stage commands without starting anything.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument: %s", flagSet.Arg(0))}
	}

	return &app.Config{
		ProfilePath: *profileFlag,
		ConfigDir:   *configDirFlag,
		DryRun:      *dryRunFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	}, false, nil
}
