// Package basic implements a line-numbered C64-style BASIC interpreter.
package basic

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error the interpreter can raise.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindLex
	KindSyntax
	KindTypeMismatch
	KindDivisionByZero
	KindUndefinedFunction
	KindArgumentCount
	KindNextWithoutFor
	KindReturnWithoutGosub
	KindUndefinedLine
	KindPersistence
	KindIllegalQuantity
	KindOutOfMemory
)

// kindNames are the C64 texts printed before "ERROR".
var kindNames = map[ErrorKind]string{
	KindLex:                "STRING NOT TERMINATED",
	KindSyntax:             "SYNTAX",
	KindTypeMismatch:       "TYPE MISMATCH",
	KindDivisionByZero:     "DIVISION BY ZERO",
	KindUndefinedFunction:  "UNDEF'D FUNCTION",
	KindArgumentCount:      "ARGUMENT COUNT",
	KindNextWithoutFor:     "NEXT WITHOUT FOR",
	KindReturnWithoutGosub: "RETURN WITHOUT GOSUB",
	KindUndefinedLine:      "UNDEF'D STATEMENT",
	KindPersistence:        "FILE",
	KindIllegalQuantity:    "ILLEGAL QUANTITY",
	KindOutOfMemory:        "OUT OF MEMORY",
}

// String returns the C64 name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Sentinels for errors.Is. A *BASICError matches the sentinel of its kind.
var (
	ErrLex                = &BASICError{Kind: KindLex}
	ErrSyntax             = &BASICError{Kind: KindSyntax}
	ErrTypeMismatch       = &BASICError{Kind: KindTypeMismatch}
	ErrDivisionByZero     = &BASICError{Kind: KindDivisionByZero}
	ErrUndefinedFunction  = &BASICError{Kind: KindUndefinedFunction}
	ErrArgumentCount      = &BASICError{Kind: KindArgumentCount}
	ErrNextWithoutFor     = &BASICError{Kind: KindNextWithoutFor}
	ErrReturnWithoutGosub = &BASICError{Kind: KindReturnWithoutGosub}
	ErrUndefinedLine      = &BASICError{Kind: KindUndefinedLine}
	ErrPersistence        = &BASICError{Kind: KindPersistence}
	ErrIllegalQuantity    = &BASICError{Kind: KindIllegalQuantity}
	ErrOutOfMemory        = &BASICError{Kind: KindOutOfMemory}
)

// ErrProgramRunning is returned when a command needs an idle interpreter.
var ErrProgramRunning = errors.New("program already running")

// BASICError is a structured interpreter error.
type BASICError struct {
	Kind       ErrorKind
	Detail     string // optional specifics, e.g. the offending token
	LineNumber int    // program line, 0 in immediate mode
	DirectMode bool
	located    bool // LineNumber was set by the run loop, line 0 included
	cause      error
}

// Error renders the classic form, e.g. "?SYNTAX ERROR IN 20: MISSING THEN".
func (be *BASICError) Error() string {
	msg := "?" + be.Kind.String() + " ERROR"
	if !be.DirectMode && (be.located || be.LineNumber > 0) {
		msg += fmt.Sprintf(" IN %d", be.LineNumber)
	}
	if be.Detail != "" {
		msg += ": " + be.Detail
	}
	return msg
}

// Is reports whether target is the sentinel (or any error) of the same kind.
func (be *BASICError) Is(target error) bool {
	var other *BASICError
	if errors.As(target, &other) {
		return other.Kind == be.Kind
	}
	return false
}

// Unwrap returns the collaborator error behind a PersistenceError.
func (be *BASICError) Unwrap() error {
	return be.cause
}

func newError(kind ErrorKind, format string, args ...interface{}) *BASICError {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &BASICError{Kind: kind, Detail: detail}
}

func syntaxError(format string, args ...interface{}) *BASICError {
	return newError(KindSyntax, format, args...)
}

func typeMismatch(format string, args ...interface{}) *BASICError {
	return newError(KindTypeMismatch, format, args...)
}

// persistenceError wraps a collaborator failure.
func persistenceError(err error) *BASICError {
	be := newError(KindPersistence, "%s", err.Error())
	be.cause = err
	return be
}

// withLine stamps the line context onto a BASICError. Other errors pass through.
func withLine(err error, line int, direct bool) error {
	var be *BASICError
	if errors.As(err, &be) && !be.located && be.LineNumber == 0 {
		be.LineNumber = line
		be.DirectMode = direct
		be.located = !direct
	}
	return err
}

// KindOf returns the kind of err, KindNone if it is not a BASICError.
func KindOf(err error) ErrorKind {
	var be *BASICError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindNone
}

// BreakError reports a run interrupted from outside (STOP or cancellation).
type BreakError struct {
	LineNumber int
	cause      error
}

func (e *BreakError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("BREAK IN %d", e.LineNumber)
	}
	return "BREAK"
}

func (e *BreakError) Unwrap() error {
	return e.cause
}
