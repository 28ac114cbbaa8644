// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package soil

import (
	"errors"
	"fmt"
)

// maxBodyExcerpt limits how much of an unparsable body is kept for diagnostics
const maxBodyExcerpt = 512

var (
	// ErrUpdateFailed is the unified failure of a provider fetch. All provider errors match it.
	ErrUpdateFailed = errors.New("update failed")

	ErrTransport = errors.New("transport failure")
	ErrParse     = errors.New("parse failure")
	ErrShape     = errors.New("unexpected response shape")
)

// UpdateError describes why a fetch failed. It matches ErrUpdateFailed and its kind with errors.Is.
type UpdateError struct {
	// Kind is one of ErrTransport, ErrParse or ErrShape
	Kind error
	// Cause is the underlying error, if any
	Cause error
	// Body holds an excerpt of the offending response body for parse failures
	Body string
}

// NewUpdateError returns an UpdateError of the given kind.
func NewUpdateError(kind, cause error) *UpdateError {
	return &UpdateError{Kind: kind, Cause: cause}
}

// WithBody attaches a bounded excerpt of body to the error.
func (e *UpdateError) WithBody(body []byte) *UpdateError {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	e.Body = string(body)
	return e
}

func (e *UpdateError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrUpdateFailed, e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Body != "" {
		msg += fmt.Sprintf(" (body: %q)", e.Body)
	}
	return msg
}

func (e *UpdateError) Unwrap() []error {
	errs := []error{ErrUpdateFailed, e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
