/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package errs contains the closed set of error kinds returned by the
dispatcher and its components.

Every error which crosses a component boundary is wrapped in an Error
before it is returned so that callers (and eventually the coordinator)
can act on the Kind rather than parsing a message string.
*/
package errs

import (
	"errors"
	"fmt"
)

/*
Kind identifies a class of failure. The set is closed: dispatcher code
should never invent a new Kind ad-hoc.
*/
type Kind string

/*
Known error kinds.
*/
const (
	NotFound             Kind = "NotFound"
	DuplicateID          Kind = "DuplicateId"
	TypeMismatch         Kind = "TypeMismatch"
	InvalidValue         Kind = "InvalidValue"
	MissingKey           Kind = "MissingKey"
	UnsupportedOperation Kind = "UnsupportedOperation"
	InvalidOperation     Kind = "InvalidOperation"
	IllegalState         Kind = "IllegalState"
	DataType             Kind = "DataType"
	LibraryLoad          Kind = "LibraryLoad"
	StoreError           Kind = "StoreError"
	CommError            Kind = "CommError"
	Unimplemented        Kind = "Unimplemented"
)

/*
Error is a dispatcher-level error carrying a closed Kind and a detail
message.
*/
type Error struct {
	Kind    Kind   // Error kind (use for equality checks)
	Message string // Human readable detail
}

/*
New creates a new Error of a given kind.
*/
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

/*
Newf creates a new Error of a given kind with a formatted message.
*/
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

/*
Error returns a human-readable representation of this error.
*/
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Message)
	}
	return string(e.Kind)
}

/*
Is reports whether target is an *Error with the same Kind. This lets
callers use errors.Is(err, errs.New(errs.NotFound, "")) or compare kinds
directly via KindOf.
*/
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

/*
KindOf extracts the Kind of an error, if it is (or wraps) an *Error.
Returns "" for unrelated errors.
*/
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
