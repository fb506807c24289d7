// Package errors defines typed errors with categories for user-friendly reporting.
// Commands wrap failures at the CLI boundary with a Kind so the top level can pick
// the right guidance (re-login, check the DSN, check the project id) while keeping
// the underlying cause available through errors.Is / errors.As.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// ConfigInvalid indicates missing or malformed settings.
	ConfigInvalid Kind = "config_invalid"
	// ProjectNotFound indicates the configured project does not exist remotely.
	ProjectNotFound Kind = "project_not_found"
	// RemoteFailed indicates an Asana API or transport failure.
	RemoteFailed Kind = "remote_failed"
	// DatabaseFailed indicates a connection or statement failure.
	DatabaseFailed Kind = "database_failed"
	// SecretsUnavailable indicates the OS keychain could not be used.
	SecretsUnavailable Kind = "secrets_unavailable"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the outermost *E in err's chain, or "" when none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
