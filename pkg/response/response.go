package response

import (
	"encoding/json"
	"net/http"

	"github.com/windfall/fluentmind/internal/errors"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody represents an error in the response.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Meta describes the window of a paginated listing.
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// JSONWithMeta writes a JSON response with metadata.
func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err interface{}) {
	var errBody *ErrorBody

	switch e := err.(type) {
	case *ErrorBody:
		errBody = e
	case interface{ Error() string }:
		errBody = &ErrorBody{
			Code:    "ERROR",
			Message: e.Error(),
		}
	case string:
		errBody = &ErrorBody{
			Code:    "ERROR",
			Message: e,
		}
	default:
		errBody = &ErrorBody{
			Code:    "UNKNOWN_ERROR",
			Message: "An unknown error occurred",
		}
	}

	write(w, status, Response{
		Success: false,
		Error:   errBody,
	})
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, &ErrorBody{
		Code:    "NOT_FOUND",
		Message: message,
	})
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, &ErrorBody{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "method not allowed",
	})
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, &ErrorBody{
		Code:    "INTERNAL_ERROR",
		Message: message,
	})
}

// Failure writes err as an error envelope and returns the status used.
// AppErrors keep their code and status; anything else is a 500. Wrapped
// causes are only included when exposeCause is set.
func Failure(w http.ResponseWriter, err error, exposeCause bool) int {
	appErr, ok := errors.As(err)
	if !ok {
		body := &ErrorBody{Code: string(errors.ErrInternal), Message: "internal server error"}
		if exposeCause && err != nil {
			body.Details = map[string]interface{}{"cause": err.Error()}
		}
		Error(w, http.StatusInternalServerError, body)
		return http.StatusInternalServerError
	}

	body := &ErrorBody{Code: string(appErr.Code), Message: appErr.Message}
	if len(appErr.Details) > 0 || (exposeCause && appErr.Err != nil) {
		body.Details = make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			body.Details[k] = v
		}
		if exposeCause && appErr.Err != nil {
			body.Details["cause"] = appErr.Err.Error()
		}
	}

	status := appErr.HTTPStatus()
	Error(w, status, body)
	return status
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
