package response

import (
	"errors"
	"net/http"
	"strconv"

	"tripstock/internal/shared/errs"

	"github.com/gin-gonic/gin"
)

// RetryAfterSeconds is advertised on transient conflicts
const RetryAfterSeconds = 1

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a domain error onto the envelope and status code.
// Unclassified errors are reported without their message.
func RespondError(c *gin.Context, err error) {
	code := errs.HTTPStatus(err)
	detail := ErrorDetail{Code: errs.Code(err)}

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal server error"
		_ = c.Error(err)
	}
	if code == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		detail.Fields = ve.Fields
	}

	RespondJSON(c, "error", code, message, nil, detail)
}
