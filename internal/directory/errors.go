// ABOUTME: Domain error kinds produced by the directory guards
// ABOUTME: DuplicateError, NotFoundError, and BadArgumentError with their sentinels

package directory

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrDuplicate   = errors.New("duplicate")
	ErrNotFound    = errors.New("not found")
	ErrBadArgument = errors.New("bad argument")
)

// Owner identifies the record a namespaced record lives under.
type Owner struct {
	Kind  string
	Label string
}

// DuplicateError reports an attempted create of a label that already exists.
type DuplicateError struct {
	Kind  string
	Name  string
	Owner *Owner // nil for top-level records
}

func (e *DuplicateError) Error() string {
	if e.Owner != nil {
		return fmt.Sprintf("%s %s on %s %s already exists.", e.Kind, e.Name, e.Owner.Kind, e.Owner.Label)
	}
	return fmt.Sprintf("%s %s already exists.", e.Kind, e.Name)
}

// Is reports ErrDuplicate.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// NotFoundError reports a lookup of a label that does not exist.
type NotFoundError struct {
	Kind  string
	Name  string
	Owner *Owner
}

func (e *NotFoundError) Error() string {
	if e.Owner != nil {
		return fmt.Sprintf("%s %s on %s %s does not exist.", e.Kind, e.Name, e.Owner.Kind, e.Owner.Label)
	}
	return fmt.Sprintf("%s %s does not exist.", e.Kind, e.Name)
}

// Is reports ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BadArgumentError reports a missing or malformed request argument.
type BadArgumentError struct {
	Argument string
	Reason   string
}

func (e *BadArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Is reports ErrBadArgument.
func (e *BadArgumentError) Is(target error) bool {
	return target == ErrBadArgument
}

// argument is a named request value checked before a scope is opened.
type argument struct {
	name  string
	value string
}

// required returns a BadArgumentError for the first empty argument.
func required(args ...argument) error {
	for _, a := range args {
		if a.value == "" {
			return &BadArgumentError{Argument: a.name, Reason: "must not be empty"}
		}
	}
	return nil
}
