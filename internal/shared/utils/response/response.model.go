package response

import "tripstock/internal/shared/errs"

type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorDetail is the machine-readable part of an error response
type ErrorDetail struct {
	Code   string            `json:"code"`
	Fields []errs.FieldError `json:"fields,omitempty"`
}
