// Package errdefs defines the error taxonomy shared across provisioning,
// validation, and the CLI exit-code mapping.
//
// Propagation policy:
//   - ConfigError and RuntimeUnavailable abort before any resource mutation.
//   - ConflictError, NodeStartupError, and NetworkError trigger rollback of
//     the resources created in the current run.
//   - ValidationFailure never triggers rollback; the deployment stands and
//     the failure is surfaced in the test report.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Violation is a single topology constraint violation.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ConfigError carries the complete batch of topology violations found in a
// single validation pass, so an operator can fix everything at once.
type ConfigError struct {
	Violations []Violation
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid topology (%d violations):\n  %s",
		len(e.Violations), strings.Join(msgs, "\n  "))
}

// ConflictError reports an existing runtime resource whose actual
// configuration mismatches the declared spec. The resource is never mutated;
// it may be shared with unrelated deployments.
type ConflictError struct {
	Resource string // e.g. "network", "node"
	Name     string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q exists with conflicting configuration: %s", e.Resource, e.Name, e.Detail)
}

// NodeStartupError reports a node whose control-plane never became ready
// within its timeout, or whose container terminated while waiting.
type NodeStartupError struct {
	Node  string
	Cause error
}

func (e *NodeStartupError) Error() string {
	return fmt.Sprintf("node %q failed to become healthy: %v", e.Node, e.Cause)
}

func (e *NodeStartupError) Unwrap() error { return e.Cause }

// NetworkError reports a runtime failure creating or attaching a network.
type NetworkError struct {
	Network string
	Cause   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %q: %v", e.Network, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// ValidationFailure reports a connectivity or traffic test that did not meet
// its pass criterion. It carries a diagnostic, not a cause: the deployment
// itself is intact.
type ValidationFailure struct {
	Test       string
	Diagnostic string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation %q failed: %s", e.Test, e.Diagnostic)
}

// RuntimeUnavailable reports that the container runtime itself is
// unreachable. Nothing has been mutated.
type RuntimeUnavailable struct {
	Cause error
}

func (e *RuntimeUnavailable) Error() string {
	return fmt.Sprintf("container runtime unavailable: %v", e.Cause)
}

func (e *RuntimeUnavailable) Unwrap() error { return e.Cause }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var t *ConfigError
	return errors.As(err, &t)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var t *ConflictError
	return errors.As(err, &t)
}

// IsNodeStartup reports whether err is (or wraps) a NodeStartupError.
func IsNodeStartup(err error) bool {
	var t *NodeStartupError
	return errors.As(err, &t)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var t *NetworkError
	return errors.As(err, &t)
}

// IsValidation reports whether err is (or wraps) a ValidationFailure.
func IsValidation(err error) bool {
	var t *ValidationFailure
	return errors.As(err, &t)
}

// IsRuntimeUnavailable reports whether err is (or wraps) a RuntimeUnavailable.
func IsRuntimeUnavailable(err error) bool {
	var t *RuntimeUnavailable
	return errors.As(err, &t)
}
