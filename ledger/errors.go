// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"errors"
)

// Kind classifies a ledger error
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindStateConflict Kind = "state-conflict"
	KindNotFound      Kind = "not-found"
	KindTransfer      Kind = "transfer"
	KindReentrancy    Kind = "reentrancy"
)

// Error is a ledger error with a stable machine-readable code. Sentinel
// values are compared with errors.Is
type Error struct {
	Kind   Kind
	Code   string
	Msg    string
	detail string
	parent *Error
}

func NewError(kind Kind, code string, msg string) *Error {
	return &Error{
		Kind: kind,
		Code: code,
		Msg:  msg,
	}
}

func (e *Error) Error() string {
	if e.detail != "" {
		return e.Msg + ": " + e.detail
	}
	return e.Msg
}

// With returns a copy of the error carrying extra detail. The copy still
// matches the original with errors.Is
func (e *Error) With(detail string) *Error {
	return &Error{
		Kind:   e.Kind,
		Code:   e.Code,
		Msg:    e.Msg,
		detail: detail,
		parent: e,
	}
}

// Is matches copies made by With against their sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.parent != nil && e.parent == t)
}

// KindOf returns the kind of the first ledger error in err's chain, or ""
// for infrastructure errors
func KindOf(err error) Kind {
	var lErr *Error
	if errors.As(err, &lErr) {
		return lErr.Kind
	}
	return ""
}

// CodeOf returns the code of the first ledger error in err's chain, or ""
func CodeOf(err error) string {
	var lErr *Error
	if errors.As(err, &lErr) {
		return lErr.Code
	}
	return ""
}

var (
	ErrReentrantCall = NewError(
		KindReentrancy,
		"REENTRANT_CALL",
		"reentrant call",
	)
	ErrUnexpectedValue = NewError(
		KindValidation,
		"UNEXPECTED_VALUE",
		"operation does not accept attached value",
	)
	ErrInvalidAddress = NewError(
		KindValidation,
		"INVALID_ADDRESS",
		"invalid address",
	)
	ErrMissingCaller = NewError(
		KindAuthorization,
		"MISSING_CALLER",
		"call has no caller",
	)
	ErrAmountOverflow = NewError(
		KindValidation,
		"AMOUNT_OVERFLOW",
		"amount overflows ledger totals",
	)
)
