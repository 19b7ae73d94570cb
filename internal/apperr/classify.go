package apperr

import (
	"context"
	"errors"
	"net/http"
)

// UserMessage maps an error to the message shown to the user. The underlying
// cause is never included; callers log it separately.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The operation was interrupted before it finished."
	}
	switch KindOf(err) {
	case KindInvalidInputType:
		return "Please select a PDF file."
	case KindUnreadableDocument:
		return "Could not read the PDF file. It might be corrupted or protected."
	case KindMalformedExpression:
		return "Invalid page range. Please use numbers and hyphens (e.g., 1-3, 5)."
	case KindEmptyResult:
		return "Please enter a valid page range."
	case KindIndexOutOfBounds:
		return "That file is no longer in the list."
	case KindInvalidPermutation:
		return "The new order does not match the files in the list."
	case KindInsufficientInputs:
		return "Add at least 2 files."
	case KindProcessingFailure:
		return "An error occurred while processing the PDF."
	case KindInvalidOption:
		return "One of the selected options is not supported."
	case KindSuperseded:
		return "The operation was discarded because the session was reset."
	case KindNotFound:
		return "Not found."
	case KindNoSelection:
		return "Select a PDF file first."
	default:
		return "An unexpected error occurred."
	}
}

// HTTPStatus maps an error to the response status used by the HTTP layer.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindInvalidInputType:
		return http.StatusUnsupportedMediaType
	case KindUnreadableDocument, KindMalformedExpression, KindEmptyResult,
		KindIndexOutOfBounds, KindInvalidPermutation, KindInsufficientInputs,
		KindInvalidOption, KindNoSelection:
		return http.StatusUnprocessableEntity
	case KindSuperseded:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation reports whether err is a user-correctable input error, as
// opposed to a failure inside a pipeline.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidInputType, KindMalformedExpression, KindEmptyResult,
		KindIndexOutOfBounds, KindInvalidPermutation, KindInsufficientInputs,
		KindInvalidOption, KindNoSelection:
		return true
	}
	return false
}
