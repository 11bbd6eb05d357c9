// File path: internal/errs/errs.go

// Package errs defines the error taxonomy shared across the schema and query
// pipeline. Every failure that crosses a package boundary carries a Kind so
// callers can scope, report, and map it without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindCollectionNotFound: a requested collection does not exist in the
	// backing database or the catalog.
	KindCollectionNotFound Kind = "collection_not_found"
	// KindSourceUnavailable: the backing store could not be reached or timed
	// out while sampling.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindGenerationUnavailable: the model call failed or timed out.
	KindGenerationUnavailable Kind = "generation_unavailable"
	// KindQueryParse: the model output could not be interpreted as a query
	// descriptor.
	KindQueryParse Kind = "query_parse"
	// KindQueryValidation: the descriptor is unsafe or inconsistent with the
	// schema; Rule names the violated check.
	KindQueryValidation Kind = "query_validation"
	// KindExecution: the store rejected or failed a validated query.
	KindExecution Kind = "execution"
	// KindInternal: unexpected condition inside the service itself.
	KindInternal Kind = "internal"
)

// Error is the taxonomy error. Collection scopes generator failures inside a
// multi-collection batch; Rule identifies the validation check a descriptor
// violated.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	Collection string
	Rule       string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a kind and message.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf annotates an underlying error with a kind and formatted message.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithCollection records the collection an error is scoped to.
func (e *Error) WithCollection(name string) *Error {
	e.Collection = name
	return e
}

// WithRule records the violated validation rule.
func (e *Error) WithRule(rule string) *Error {
	e.Rule = rule
	return e
}

// IsKind reports whether err (or anything it wraps) is a taxonomy error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// RuleOf extracts the violated validation rule, if any.
func RuleOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Rule
	}
	return ""
}

// CollectionOf extracts the collection scope, if any.
func CollectionOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Collection
	}
	return ""
}
