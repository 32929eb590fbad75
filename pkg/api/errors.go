package api

import (
	"errors"
	"log/slog"
	"net/http"
)

// apiError is a classified HTTP error response, following the teacher's
// mapServiceError shape (classify via errors.Is/As, fall back to a logged
// 500) adapted to gin, which has no built-in typed HTTP error like echo's.
type apiError struct {
	Code    int
	Message string
}

// mapStageError maps stage-lookup errors to an HTTP error response.
func mapStageError(err error) apiError {
	if errors.Is(err, errStageNotFound) {
		return apiError{Code: http.StatusNotFound, Message: "stage not found"}
	}
	slog.Error("unexpected api error", "error", err)
	return apiError{Code: http.StatusInternalServerError, Message: "internal server error"}
}

var errStageNotFound = errors.New("api: stage not found")
