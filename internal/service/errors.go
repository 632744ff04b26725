// Package service holds the application logic behind the HTTP handlers:
// identity and sessions, the event catalog and ticketing.  Services talk
// to storage through small interfaces so they can be tested with fakes.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a service failure.  Handlers pick the HTTP status from
// it and show Messages to the user as-is.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindSoldOut         Kind = "sold_out"
	KindInvalidCSRF     Kind = "invalid_csrf"
	KindUnauthenticated Kind = "unauthenticated"
	KindStorage         Kind = "storage"
)

// Error is the error type returned by every service operation.  Err keeps
// the underlying cause for logs; it is never shown to users.
type Error struct {
	Kind     Kind
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.Join(e.Messages, " ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrNotFoundOrClosed   = &Error{Kind: KindNotFound, Messages: []string{"Event does not exist or is closed."}}
	ErrSoldOut            = &Error{Kind: KindSoldOut, Messages: []string{"Event is sold out."}}
	ErrDuplicateTicket    = &Error{Kind: KindConflict, Messages: []string{"You already have a ticket for this event."}}
	ErrEmailTaken         = &Error{Kind: KindConflict, Messages: []string{"Email is already registered."}}
	ErrEventNotFound      = &Error{Kind: KindNotFound, Messages: []string{"Event not found."}}
	ErrTicketNotFound     = &Error{Kind: KindNotFound, Messages: []string{"Ticket not found."}}
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Messages: []string{"Invalid credentials."}}
	ErrLoginRequired      = &Error{Kind: KindUnauthenticated, Messages: []string{"Please log in."}}
	ErrInvalidCSRF        = &Error{Kind: KindInvalidCSRF, Messages: []string{"Invalid CSRF token."}}
	ErrForbidden          = &Error{Kind: KindForbidden, Messages: []string{"You are not allowed to do that."}}
)

// ValidationError reports one or more problems with user input.
func ValidationError(msgs ...string) *Error {
	return &Error{Kind: KindValidation, Messages: msgs}
}

// storageError hides a backend failure behind a generic message.
func storageError(op string, err error) *Error {
	return &Error{
		Kind:     KindStorage,
		Messages: []string{"Something went wrong. Please try again."},
		Err:      fmt.Errorf("%s: %w", op, err),
	}
}

// KindOf returns the Kind of err, or KindStorage for anything that is
// not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessagesOf returns the user-facing messages carried by err.
func MessagesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) && len(e.Messages) > 0 {
		return e.Messages
	}
	return []string{"Something went wrong. Please try again."}
}
