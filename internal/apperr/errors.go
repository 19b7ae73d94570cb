package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the operation boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInputType
	KindUnreadableDocument
	KindMalformedExpression
	KindEmptyResult
	KindIndexOutOfBounds
	KindInvalidPermutation
	KindInsufficientInputs
	KindProcessingFailure
	KindInvalidOption
	KindSuperseded
	KindNotFound
	KindNoSelection
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindInvalidInputType:    "invalid_input_type",
	KindUnreadableDocument:  "unreadable_document",
	KindMalformedExpression: "malformed_expression",
	KindEmptyResult:         "empty_result",
	KindIndexOutOfBounds:    "index_out_of_bounds",
	KindInvalidPermutation:  "invalid_permutation",
	KindInsufficientInputs:  "insufficient_inputs",
	KindProcessingFailure:   "processing_failure",
	KindInvalidOption:       "invalid_option",
	KindSuperseded:          "superseded",
	KindNotFound:            "not_found",
	KindNoSelection:         "no_selection",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type surfaced by tool operations.
// Op names the operation that failed, Detail is diagnostic text for logs.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Newf is New with a formatted detail.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause. A nil cause yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
