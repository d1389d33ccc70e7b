// Package source defines the contract every external platform integration
// implements, the error taxonomy adapters report failures through, and the
// detection registry that decides which integrations are usable.
package source

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"monodash/internal/execx"
	"monodash/internal/model"
)

// Source is the uniform contract for one external platform. Implementations
// isolate all platform quirks: command syntax, output schema, status and
// priority vocabulary. Adapters never cache results; caching belongs to the
// layers above.
type Source interface {
	// Kind returns the kind of item this source produces.
	Kind() model.Kind

	// Section returns the dashboard section this source feeds.
	Section() model.Section

	// Name returns the short identifier used in detection results and
	// log lines (the CLI binary name, or the API name).
	Name() string

	// IsAvailable is a cheap, local-only check: binary on PATH, or
	// token configured. It performs no network or process calls.
	IsAvailable() bool

	// CheckAuth issues one lightweight external call to confirm the
	// credential works. It returns false, never an error, on any
	// authentication-shaped failure.
	CheckAuth(ctx context.Context) bool

	// Fetch retrieves and normalizes the source's items. Records that
	// fail validation are skipped and logged; a failure of the call
	// itself is reported as one of the typed errors in this package.
	Fetch(ctx context.Context) ([]model.Item, error)
}

// NotInstalledError indicates the external tool's binary is absent.
// Sources reporting it are excluded from fetching, never surfaced as a
// fetch failure.
type NotInstalledError struct {
	Tool string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s is not installed", e.Tool)
}

// AuthError indicates the external tool ran but reported an authentication
// or authorization failure.
type AuthError struct {
	Name    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s not authenticated: %s", e.Name, e.Message)
}

// TransientError covers timeouts, network failures, and other non-auth
// nonzero exits that may succeed on retry.
type TransientError struct {
	Name string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ParseError indicates the external output was not the expected shape.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNotInstalled reports whether err is a NotInstalledError.
func IsNotInstalled(err error) bool {
	var e *NotInstalledError
	return errors.As(err, &e)
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// authTextPatterns are stderr fragments the supported CLIs emit on
// authentication failures. Exit codes alone are ambiguous, so failures are
// classified by matching these.
var authTextPatterns = []string{
	"not authenticated",
	"not logged in",
	"authentication failed",
	"authentication required",
	"unauthorized",
	"401",
	"auth login",
	"login required",
	"invalid token",
	"token is invalid",
	"credentials",
}

// looksLikeAuthFailure reports whether CLI output text matches a known
// authentication failure pattern.
func looksLikeAuthFailure(text string) bool {
	lower := strings.ToLower(text)
	for _, pat := range authTextPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// ClassifyRun converts an executor outcome into the source error taxonomy:
// missing binary, timeout, auth-shaped stderr, or plain nonzero exit. A nil
// return means the command succeeded and its stdout can be parsed. No raw
// OS-level error escapes past this point.
func ClassifyRun(name string, res *execx.Result, err error) error {
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &NotInstalledError{Tool: name}
		}
		if execx.IsTimeout(err) {
			return &TransientError{Name: name, Err: err}
		}
		return &TransientError{Name: name, Err: err}
	}
	if res.ExitCode == 0 {
		return nil
	}

	stderr := strings.TrimSpace(string(res.Stderr))
	if looksLikeAuthFailure(stderr) {
		return &AuthError{Name: name, Message: firstLine(stderr)}
	}
	return &TransientError{
		Name: name,
		Err:  fmt.Errorf("exit status %d: %s", res.ExitCode, firstLine(stderr)),
	}
}

// firstLine trims output to its first non-empty line for use in short,
// user-facing messages; the full text belongs in the log only.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return s
}
