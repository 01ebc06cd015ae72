// Package errors renders failures at the CLI boundary.
package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/habitd/internal/config"
	"github.com/julianstephens/habitd/internal/constants"
	"github.com/julianstephens/habitd/internal/keyring"
	"github.com/julianstephens/habitd/internal/logger"
	"github.com/julianstephens/habitd/internal/storage"
	"github.com/julianstephens/habitd/internal/storage/postgres"
)

// Exit codes returned by the habitd binary.
const (
	ExitFailure  = 1
	ExitNotFound = 2
	ExitConfig   = 3
)

// Format formats an error message with a consistent "Error: " prefix.
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Hint returns a follow-up suggestion for well-known failures, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, postgres.ErrEmbeddedCredentials):
		return fmt.Sprintf("store the connection string with '%s keyring set' or export %s", constants.AppName, constants.ConnectionEnvVar)
	case errors.Is(err, keyring.ErrKeyringUnavailable):
		return fmt.Sprintf("export %s instead of using the OS keyring", constants.ConnectionEnvVar)
	case errors.Is(err, config.ErrInvalidConfig):
		return fmt.Sprintf("check %s", config.GetPaths().ConfigFile)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("list existing records with '%s user list' or '%s habit list'", constants.AppName, constants.AppName)
	}
	return ""
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, postgres.ErrEmbeddedCredentials):
		return ExitConfig
	}
	return ExitFailure
}

// Report writes the formatted error and any hint to w.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, Format(err))
	if hint := Hint(err); hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", hint)
	}
}

// Fatal logs err, reports it on stderr and exits with ExitCode(err).
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		Report(os.Stderr, err)
		os.Exit(ExitCode(err))
	}
}

func Fatalf(format string, args ...any) {
	Fatal(fmt.Errorf(format, args...))
}
