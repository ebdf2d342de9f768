package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentialKind indicates an unrecognized credential kind.
	ErrInvalidCredentialKind = errors.New("invalid credential kind")
	// ErrAuthenticationFailed indicates that no credential matched the sign-in text.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrInvalidToken indicates an unknown or expired access token.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenNotFound indicates a logout against a token that is not active.
	ErrTokenNotFound = errors.New("token not found")
	// ErrAccessDenied indicates a valid token whose grants do not cover the request.
	ErrAccessDenied = errors.New("access denied")
)

// Entity kinds carried by NotFoundError and DuplicateError.
const (
	KindUser        = "user"
	KindPermission  = "permission"
	KindRole        = "role"
	KindEntitlement = "entitlement"
	KindResource    = "resource"
	KindBinding     = "resource role binding"
)

// NotFoundError reports an unresolved identifier during a mutation or lookup.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity kind and identifier.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DuplicateError reports an identifier collision during creation.
type DuplicateError struct {
	Kind string
	ID   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// NewDuplicate builds a DuplicateError for the given entity kind and identifier.
func NewDuplicate(kind, id string) error {
	return &DuplicateError{Kind: kind, ID: id}
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}

// MalformedCommandError reports a protocol-level parse or validation failure.
// Command echoes only the operation token, never field values, so that
// secrets supplied in a malformed line cannot leak through error text.
type MalformedCommandError struct {
	Command string
	Reason  string
}

func (e *MalformedCommandError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("malformed command: %s", e.Reason)
	}
	return fmt.Sprintf("malformed %s command: %s", e.Command, e.Reason)
}

// NewMalformedCommand builds a MalformedCommandError.
func NewMalformedCommand(command, reason string) error {
	return &MalformedCommandError{Command: command, Reason: reason}
}
