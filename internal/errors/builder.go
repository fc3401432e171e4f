package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// safeDetailPrefix tags a safe-detail payload as JSON so response rendering
// can tell structured details apart from redaction markers.
const safeDetailPrefix = "__json__:"

// ErrorBuilder assembles an error from an optional cause, a user-facing hint
// and reportable billing identifiers (subscription, invoice, plan), then marks
// it with one of the package sentinels. The builder itself is not an error;
// the chain must end with Mark.
type ErrorBuilder struct {
	err error
}

// NewError starts a chain from a fresh internal message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a chain from an existing cause, typically a provider or
// database error being classified on the way up.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes internal context. Never shown to the caller.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint attaches the message rendered to the caller in the error response.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches identifiers that are safe to surface in the
// response body and in Sentry reports. Values must not contain secrets or
// payment credentials. Details from the whole chain merge at render time.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, safeDetailPrefix+"%s", errors.Safe(string(marshaled)))
	return b
}

// WithDetail is WithReportableDetails for a single identifier.
func (b *ErrorBuilder) WithDetail(key string, value any) *ErrorBuilder {
	return b.WithReportableDetails(map[string]any{key: value})
}

// Mark classifies the error against a package sentinel and ends the chain.
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}
